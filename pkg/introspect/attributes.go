package introspect

// Inheritable is implemented by attribute kinds that control whether derived
// types see them. Attributes that do not implement it are inherited.
type Inheritable interface {
	Inherited() bool
}

// RawAttribute is an attribute whose kind the host does not know. It is
// surfaced as-is so callers can still detect and decode it.
type RawAttribute struct {
	// Kind is the declared attribute kind name.
	Kind string

	// Data is the undecoded attribute payload.
	Data []byte
}

func inherited(attr any) bool {
	if i, ok := attr.(Inheritable); ok {
		return i.Inherited()
	}
	return true
}

// GetCustomAttribute returns the first attribute of kind K declared directly
// on t. When several are declared, which one is returned is unspecified.
func GetCustomAttribute[K any](t Type) (K, bool) {
	var zero K
	if t == nil {
		return zero, false
	}
	return firstOf[K](t.Attributes())
}

// GetMemberAttribute returns the first attribute of kind K declared on m.
// Inherited members are never consulted.
func GetMemberAttribute[K any](m Member) (K, bool) {
	var zero K
	if m == nil {
		return zero, false
	}
	return firstOf[K](m.Attributes())
}

// GetCustomAttributes returns every attribute of kind K on t. When inherit is
// true, attributes declared on supertypes are included after those of t.
func GetCustomAttributes[K any](t Type, inherit bool) []K {
	var out []K
	walkAttributes(t, inherit, func(attr any) bool {
		if k, ok := attr.(K); ok {
			out = append(out, k)
		}
		return true
	})
	return out
}

// IsDefined reports whether an attribute of kind K is present on t. It is
// equivalent to len(GetCustomAttributes[K](t, inherit)) > 0.
func IsDefined[K any](t Type, inherit bool) bool {
	found := false
	walkAttributes(t, inherit, func(attr any) bool {
		_, found = attr.(K)
		return !found
	})
	return found
}

func firstOf[K any](attrs []any) (K, bool) {
	for _, attr := range attrs {
		if k, ok := attr.(K); ok {
			return k, true
		}
	}
	var zero K
	return zero, false
}

// walkAttributes visits the attributes of t and, if inherit is set, the
// inheritable attributes of its supertypes. fn returns false to stop.
func walkAttributes(t Type, inherit bool, fn func(attr any) bool) {
	if t == nil {
		return
	}
	seen := make(map[Type]bool)
	for depth, cur := 0, t; cur != nil && !seen[cur]; depth, cur = depth+1, cur.Base() {
		seen[cur] = true
		for _, attr := range cur.Attributes() {
			if depth > 0 && !inherited(attr) {
				continue
			}
			if !fn(attr) {
				return
			}
		}
		if !inherit {
			return
		}
	}
}
