package introspect

// flags returns the flags of t, treating a nil handle as having none.
func flags(t Type) Flags {
	if t == nil {
		return 0
	}
	return t.Flags()
}

// IsEnum reports whether t is an enumeration type.
func IsEnum(t Type) bool { return flags(t).Has(FlagEnum) }

// IsInterface reports whether t is an interface type.
func IsInterface(t Type) bool { return flags(t).Has(FlagInterface) }

// IsAbstract reports whether t cannot be instantiated. Interfaces are abstract.
func IsAbstract(t Type) bool { return flags(t).Has(FlagAbstract) }

// IsPublic reports whether t is visible outside its declaring module.
func IsPublic(t Type) bool { return flags(t).Has(FlagPublic) }

// IsPrimitive reports whether t is a built-in scalar type.
func IsPrimitive(t Type) bool { return flags(t).Has(FlagPrimitive) }

// IsNestedPrivate reports whether t is only visible inside its declaring scope.
func IsNestedPrivate(t Type) bool { return flags(t).Has(FlagNestedPrivate) }

// IsGenericTypeDefinition reports whether t is an uninstantiated generic type.
// In-process Go types never are; the Go runtime only sees instantiations.
func IsGenericTypeDefinition(t Type) bool { return flags(t).Has(FlagGenericDefinition) }

// IsGenericType reports whether t is generic, instantiated or not.
func IsGenericType(t Type) bool { return flags(t).Has(FlagGeneric) }

// BaseType returns the direct supertype of t. The second result is false for
// root types.
func BaseType(t Type) (Type, bool) {
	if t == nil {
		return nil, false
	}
	base := t.Base()
	return base, base != nil
}

// DeclaringModule returns the module that declares t.
func DeclaringModule(t Type) Module {
	if t == nil {
		return nil
	}
	return t.Module()
}

// DeclaringAssembly returns the binary that declares t.
func DeclaringAssembly(t Type) Assembly {
	return ModuleAssembly(DeclaringModule(t))
}

// ModuleAssembly returns the binary that owns m.
func ModuleAssembly(m Module) Assembly {
	if m == nil {
		return Assembly{}
	}
	return m.Assembly()
}

// IsSubclassOf reports whether base appears in the supertype chain of t.
// A type is not a subclass of itself.
func IsSubclassOf(t, base Type) bool {
	if t == nil || base == nil {
		return false
	}
	seen := map[Type]bool{t: true}
	for cur := t.Base(); cur != nil && !seen[cur]; cur = cur.Base() {
		if cur == base {
			return true
		}
		seen[cur] = true
	}
	return false
}

// FindMember returns the member of t with the given name.
func FindMember(t Type, name string) (Member, bool) {
	if t == nil {
		return nil, false
	}
	for _, m := range t.Members() {
		if m.Name() == name {
			return m, true
		}
	}
	return nil, false
}

// FindStaticMethod returns the static method of t with the given name.
func FindStaticMethod(t Type, name string) (Method, bool) {
	if t == nil {
		return nil, false
	}
	for _, m := range t.StaticMethods() {
		if m.Name() == name {
			return m, true
		}
	}
	return nil, false
}
