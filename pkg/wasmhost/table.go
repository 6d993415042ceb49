package wasmhost

import (
	"bytes"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// SectionName is the custom section that carries a binary's type table.
const SectionName = "typescope.types"

// Type kinds recognized in a TypeSpec.
const (
	KindStruct    = "struct"
	KindInterface = "interface"
	KindEnum      = "enum"
	KindPrimitive = "primitive"
)

// TypeTable is the msgpack document stored in the SectionName section.
type TypeTable struct {
	// ABI is the table format version the binary was built against.
	ABI int `msgpack:"abi"`

	// Types lists the exported types in declaration order.
	Types []TypeSpec `msgpack:"types"`
}

// TypeSpec describes one exported type.
type TypeSpec struct {
	Name          string          `msgpack:"name"`
	Kind          string          `msgpack:"kind"`
	Exported      bool            `msgpack:"exported"`
	Nested        bool            `msgpack:"nested,omitempty"`
	Abstract      bool            `msgpack:"abstract,omitempty"`
	GenericParams int             `msgpack:"generic_params,omitempty"`
	TypeArgs      []string        `msgpack:"type_args,omitempty"`
	Base          string          `msgpack:"base,omitempty"`
	ABI           int             `msgpack:"abi,omitempty"`
	Requires      []string        `msgpack:"requires,omitempty"`
	Attributes    []AttributeSpec `msgpack:"attributes,omitempty"`
	Fields        []FieldSpec     `msgpack:"fields,omitempty"`
	Methods       []MethodSpec    `msgpack:"methods,omitempty"`
}

// AttributeSpec is an encoded attribute instance.
type AttributeSpec struct {
	Kind string             `msgpack:"kind"`
	Data msgpack.RawMessage `msgpack:"data,omitempty"`
}

// FieldSpec describes a declared member.
type FieldSpec struct {
	Name       string          `msgpack:"name"`
	Attributes []AttributeSpec `msgpack:"attributes,omitempty"`
}

// MethodSpec binds a static method to an exported function.
type MethodSpec struct {
	Name string `msgpack:"name"`

	// Export is the exported function name. Defaults to Name.
	Export string `msgpack:"export,omitempty"`

	Params []ParamSpec `msgpack:"params,omitempty"`

	// Result is the wasm value type of the single result, or empty.
	Result string `msgpack:"result,omitempty"`
}

// ParamSpec describes a method parameter. Type is a wasm value type name:
// i32, i64, f32 or f64.
type ParamSpec struct {
	Name     string `msgpack:"name"`
	Type     string `msgpack:"type"`
	Optional bool   `msgpack:"optional,omitempty"`
	Default  any    `msgpack:"default,omitempty"`
}

// NewAttribute encodes v as an attribute of the given kind.
func NewAttribute(kind string, v any) (AttributeSpec, error) {
	data, err := msgpack.Marshal(v)
	if err != nil {
		return AttributeSpec{}, fmt.Errorf("failed to encode attribute %s: %w", kind, err)
	}
	return AttributeSpec{Kind: kind, Data: data}, nil
}

// EncodeTypeTable encodes a type table for embedding in a binary.
func EncodeTypeTable(table *TypeTable) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	if err := enc.Encode(table); err != nil {
		return nil, fmt.Errorf("failed to encode type table: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeTypeTable decodes the contents of a SectionName section.
func DecodeTypeTable(data []byte) (*TypeTable, error) {
	var table TypeTable
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&table); err != nil {
		return nil, fmt.Errorf("failed to decode type table: %w", err)
	}
	return &table, nil
}
