// Package wasmtest assembles small WebAssembly binaries for tests. It covers
// the handful of sections the host reads: types, imports, functions, memory,
// exports, code, data and custom sections.
package wasmtest

// ValType is a WebAssembly value type.
type ValType byte

const (
	I32 ValType = 0x7f
	I64 ValType = 0x7e
	F32 ValType = 0x7d
	F64 ValType = 0x7c
)

const (
	sectionCustom   = 0
	sectionType     = 1
	sectionImport   = 2
	sectionFunction = 3
	sectionMemory   = 5
	sectionExport   = 7
	sectionCode     = 10
	sectionData     = 11
)

// Func is a function defined by the binary.
type Func struct {
	// Export is the export name. Empty keeps the function private.
	Export string

	Params  []ValType
	Results []ValType

	// Body is the instruction sequence without the trailing end opcode.
	Body []byte
}

// Import is an imported host function.
type Import struct {
	Module  string
	Name    string
	Params  []ValType
	Results []ValType
}

type custom struct {
	name string
	data []byte
}

type segment struct {
	offset uint32
	data   []byte
}

// Builder accumulates the contents of a binary.
type Builder struct {
	imports  []Import
	funcs    []Func
	customs  []custom
	memory   *uint32
	segments []segment
}

// New returns an empty builder.
func New() *Builder {
	return &Builder{}
}

// Import adds an imported function. Imported functions take the lowest
// function indices, in the order added.
func (b *Builder) Import(module, name string, params, results []ValType) *Builder {
	b.imports = append(b.imports, Import{Module: module, Name: name, Params: params, Results: results})
	return b
}

// Func adds a defined function.
func (b *Builder) Func(f Func) *Builder {
	b.funcs = append(b.funcs, f)
	return b
}

// Memory declares a linear memory of the given initial size in pages,
// exported as "memory".
func (b *Builder) Memory(pages uint32) *Builder {
	b.memory = &pages
	return b
}

// Data places bytes in memory at offset. It requires Memory.
func (b *Builder) Data(offset uint32, data []byte) *Builder {
	b.segments = append(b.segments, segment{offset: offset, data: data})
	return b
}

// Custom adds a custom section.
func (b *Builder) Custom(name string, data []byte) *Builder {
	b.customs = append(b.customs, custom{name: name, data: data})
	return b
}

// Bytes encodes the binary.
func (b *Builder) Bytes() []byte {
	out := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

	var types []byte
	types = appendU32(types, uint32(len(b.imports)+len(b.funcs)))
	for _, imp := range b.imports {
		types = appendFuncType(types, imp.Params, imp.Results)
	}
	for _, f := range b.funcs {
		types = appendFuncType(types, f.Params, f.Results)
	}
	out = appendSection(out, sectionType, types)

	if len(b.imports) > 0 {
		var imports []byte
		imports = appendU32(imports, uint32(len(b.imports)))
		for i, imp := range b.imports {
			imports = appendName(imports, imp.Module)
			imports = appendName(imports, imp.Name)
			imports = append(imports, 0x00)
			imports = appendU32(imports, uint32(i))
		}
		out = appendSection(out, sectionImport, imports)
	}

	var funcs []byte
	funcs = appendU32(funcs, uint32(len(b.funcs)))
	for i := range b.funcs {
		funcs = appendU32(funcs, uint32(len(b.imports)+i))
	}
	out = appendSection(out, sectionFunction, funcs)

	if b.memory != nil {
		mem := appendU32([]byte{0x01, 0x00}, *b.memory)
		out = appendSection(out, sectionMemory, mem)
	}

	var exports []byte
	count := 0
	if b.memory != nil {
		count++
		exports = appendName(exports, "memory")
		exports = append(exports, 0x02)
		exports = appendU32(exports, 0)
	}
	for i, f := range b.funcs {
		if f.Export == "" {
			continue
		}
		count++
		exports = appendName(exports, f.Export)
		exports = append(exports, 0x00)
		exports = appendU32(exports, uint32(len(b.imports)+i))
	}
	out = appendSection(out, sectionExport, append(appendU32(nil, uint32(count)), exports...))

	var code []byte
	code = appendU32(code, uint32(len(b.funcs)))
	for _, f := range b.funcs {
		body := append([]byte{0x00}, f.Body...)
		body = append(body, opEnd)
		code = appendU32(code, uint32(len(body)))
		code = append(code, body...)
	}
	out = appendSection(out, sectionCode, code)

	if len(b.segments) > 0 {
		var data []byte
		data = appendU32(data, uint32(len(b.segments)))
		for _, seg := range b.segments {
			data = append(data, 0x00)
			data = append(data, I32Const(int32(seg.offset))...)
			data = append(data, opEnd)
			data = appendU32(data, uint32(len(seg.data)))
			data = append(data, seg.data...)
		}
		out = appendSection(out, sectionData, data)
	}

	for _, c := range b.customs {
		out = appendSection(out, sectionCustom, append(appendName(nil, c.name), c.data...))
	}
	return out
}

func appendFuncType(b []byte, params, results []ValType) []byte {
	b = append(b, 0x60)
	b = appendU32(b, uint32(len(params)))
	for _, p := range params {
		b = append(b, byte(p))
	}
	b = appendU32(b, uint32(len(results)))
	for _, r := range results {
		b = append(b, byte(r))
	}
	return b
}

func appendSection(b []byte, id byte, content []byte) []byte {
	b = append(b, id)
	b = appendU32(b, uint32(len(content)))
	return append(b, content...)
}

func appendName(b []byte, name string) []byte {
	b = appendU32(b, uint32(len(name)))
	return append(b, name...)
}

func appendU32(b []byte, v uint32) []byte {
	for {
		c := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			c |= 0x80
		}
		b = append(b, c)
		if v == 0 {
			return b
		}
	}
}

func appendS64(b []byte, v int64) []byte {
	for {
		c := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && c&0x40 == 0) || (v == -1 && c&0x40 != 0) {
			return append(b, c)
		}
		b = append(b, c|0x80)
	}
}
