package wasmtest

const (
	opUnreachable = 0x00
	opEnd         = 0x0b
	opCall        = 0x10
	opLocalGet    = 0x20
	opI32Const    = 0x41
	opI64Const    = 0x42
	opI32Add      = 0x6a
	opI32Mul      = 0x6c
	opI64Add      = 0x7c
	opF64Add      = 0xa0
)

// Code concatenates instruction sequences.
func Code(instrs ...[]byte) []byte {
	var out []byte
	for _, in := range instrs {
		out = append(out, in...)
	}
	return out
}

func LocalGet(idx uint32) []byte { return appendU32([]byte{opLocalGet}, idx) }
func Call(idx uint32) []byte     { return appendU32([]byte{opCall}, idx) }
func I32Const(v int32) []byte    { return appendS64([]byte{opI32Const}, int64(v)) }
func I64Const(v int64) []byte    { return appendS64([]byte{opI64Const}, v) }

func I32Add() []byte      { return []byte{opI32Add} }
func I32Mul() []byte      { return []byte{opI32Mul} }
func I64Add() []byte      { return []byte{opI64Add} }
func F64Add() []byte      { return []byte{opF64Add} }
func Unreachable() []byte { return []byte{opUnreachable} }
