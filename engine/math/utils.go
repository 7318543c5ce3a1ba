package math

import (
	"encoding/binary"
	m "math"

	"golang.org/x/exp/constraints"
)

// Clamp returns the value `f` clamped to the range [low, high].
// It works for any numeric type (integers and floats).
func Clamp[T constraints.Ordered](f, low, high T) T {
	if f < low {
		return low
	}
	if f > high {
		return high
	}
	return f
}

func putFloats(dst []byte, values ...float32) []byte {
	for _, v := range values {
		dst = binary.LittleEndian.AppendUint32(dst, m.Float32bits(v))
	}
	return dst
}

// Bytes packs the matrix as 64 little-endian bytes, column-major.
func (mt Mat4) Bytes() []byte {
	return putFloats(make([]byte, 0, Mat4Size), mt.Data[:]...)
}

// AppendVertices packs vertices into dst using the Vertex3D layout
// position, normal, texcoord, colour.
func AppendVertices(dst []byte, vertices []Vertex3D) []byte {
	for _, v := range vertices {
		dst = putFloats(dst,
			v.Position.X, v.Position.Y, v.Position.Z,
			v.Normal.X, v.Normal.Y, v.Normal.Z,
			v.Texcoord.X, v.Texcoord.Y,
			v.Colour.X, v.Colour.Y, v.Colour.Z, v.Colour.W)
	}
	return dst
}

// AppendIndices packs 32-bit indices into dst.
func AppendIndices(dst []byte, indices []uint32) []byte {
	for _, i := range indices {
		dst = binary.LittleEndian.AppendUint32(dst, i)
	}
	return dst
}
