package scene

import (
	"fmt"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/spaghettifunk/vkexamples/engine/core"
	"github.com/spaghettifunk/vkexamples/engine/math"
)

func (b *builder) accessor(index int) (*gltf.Accessor, error) {
	if index < 0 || index >= len(b.doc.Accessors) || b.doc.Accessors[index] == nil {
		return nil, b.parseError("accessor %d out of range", index)
	}
	return b.doc.Accessors[index], nil
}

// checkRange verifies that count elements of acc fit inside its buffer view
// and the view inside its buffer. The modeler slices buffers before it
// checks lengths, so malformed offsets must be caught here.
func (b *builder) checkRange(what string, acc *gltf.Accessor) error {
	doc := b.doc
	elemSize := gltf.SizeOfElement(acc.ComponentType, acc.Type)
	if elemSize == 0 {
		return &core.UnsupportedFormatError{What: "accessor layout", Value: fmt.Sprintf("%v %v", acc.Type, acc.ComponentType)}
	}
	if acc.Count < 0 {
		return b.parseError("%s: negative count %d", what, acc.Count)
	}
	if acc.BufferView == nil {
		return nil
	}

	bvIndex := *acc.BufferView
	if bvIndex < 0 || bvIndex >= len(doc.BufferViews) || doc.BufferViews[bvIndex] == nil {
		return b.parseError("%s: buffer view %d out of range", what, bvIndex)
	}
	bv := doc.BufferViews[bvIndex]
	if bv.Buffer < 0 || bv.Buffer >= len(doc.Buffers) {
		return b.parseError("buffer view %d: buffer %d out of range", bvIndex, bv.Buffer)
	}
	size := len(doc.Buffers[bv.Buffer].Data)
	if bv.ByteOffset < 0 || bv.ByteLength < 0 || bv.ByteOffset+bv.ByteLength > size {
		return b.parseError("buffer view %d: [%d, %d) exceeds buffer of %d bytes", bvIndex, bv.ByteOffset, bv.ByteOffset+bv.ByteLength, size)
	}
	stride := elemSize
	if bv.ByteStride != 0 {
		if bv.ByteStride < elemSize {
			return b.parseError("buffer view %d: stride %d is smaller than element size %d", bvIndex, bv.ByteStride, elemSize)
		}
		stride = bv.ByteStride
	}
	if acc.ByteOffset < 0 || acc.ByteOffset > bv.ByteLength {
		return b.parseError("%s: offset %d outside buffer view %d", what, acc.ByteOffset, bvIndex)
	}
	if acc.Count == 0 {
		return nil
	}
	if end := acc.ByteOffset + (acc.Count-1)*stride + elemSize; end > bv.ByteLength {
		return b.parseError("%s: needs %d bytes, buffer view %d has %d", what, end, bvIndex, bv.ByteLength)
	}
	return nil
}

// readDense reads acc ignoring any sparse substitution. Accessors without a
// buffer view read as zeros.
func readDense[T any](b *builder, what string, acc *gltf.Accessor, read func(*gltf.Document, *gltf.Accessor, []T) ([]T, error)) ([]T, error) {
	if err := b.checkRange(what, acc); err != nil {
		return nil, err
	}
	if acc.BufferView == nil || acc.Count == 0 {
		return make([]T, acc.Count), nil
	}
	out, err := read(b.doc, acc, nil)
	if err != nil {
		return nil, b.parseError("%s: %v", what, err)
	}
	return out, nil
}

// readAccessor reads accessor index through read and applies its sparse
// substitutions on top of the base values.
func readAccessor[T any](b *builder, index int, read func(*gltf.Document, *gltf.Accessor, []T) ([]T, error)) ([]T, error) {
	acc, err := b.accessor(index)
	if err != nil {
		return nil, err
	}
	what := fmt.Sprintf("accessor %d", index)

	base := *acc
	base.Sparse = nil
	out, err := readDense(b, what, &base, read)
	if err != nil || acc.Sparse == nil {
		return out, err
	}

	sparse := acc.Sparse
	positions, err := readDense(b, what+" sparse indices", &gltf.Accessor{
		BufferView:    gltf.Index(sparse.Indices.BufferView),
		ByteOffset:    sparse.Indices.ByteOffset,
		ComponentType: sparse.Indices.ComponentType,
		Type:          gltf.AccessorScalar,
		Count:         sparse.Count,
	}, modeler.ReadIndices)
	if err != nil {
		return nil, err
	}
	values, err := readDense(b, what+" sparse values", &gltf.Accessor{
		BufferView:    gltf.Index(sparse.Values.BufferView),
		ByteOffset:    sparse.Values.ByteOffset,
		ComponentType: acc.ComponentType,
		Normalized:    acc.Normalized,
		Type:          acc.Type,
		Count:         sparse.Count,
	}, read)
	if err != nil {
		return nil, err
	}
	for i, at := range positions {
		if int(at) >= len(out) {
			return nil, b.parseError("%s: sparse index %d out of range for %d elements", what, at, len(out))
		}
		out[at] = values[i]
	}
	return out, nil
}

func (b *builder) readVec3(index int, semantic string) ([]math.Vec3, error) {
	acc, err := b.accessor(index)
	if err != nil {
		return nil, err
	}
	if acc.Type != gltf.AccessorVec3 || acc.ComponentType != gltf.ComponentFloat {
		return nil, &core.UnsupportedFormatError{What: semantic + " layout", Value: fmt.Sprintf("%v %v", acc.Type, acc.ComponentType)}
	}
	read := modeler.ReadPosition
	if semantic == gltf.NORMAL {
		read = modeler.ReadNormal
	}
	raw, err := readAccessor(b, index, read)
	if err != nil {
		return nil, err
	}
	out := make([]math.Vec3, len(raw))
	for i, v := range raw {
		out[i] = math.NewVec3(v[0], v[1], v[2])
	}
	return out, nil
}

// readVec2 accepts float and normalized unsigned byte or short texture
// coordinates.
func (b *builder) readVec2(index int, semantic string) ([]math.Vec2, error) {
	acc, err := b.accessor(index)
	if err != nil {
		return nil, err
	}
	ct := acc.ComponentType
	switch {
	case acc.Type != gltf.AccessorVec2,
		ct != gltf.ComponentFloat && !(acc.Normalized && (ct == gltf.ComponentUbyte || ct == gltf.ComponentUshort)):
		return nil, &core.UnsupportedFormatError{What: semantic + " layout", Value: fmt.Sprintf("%v %v", acc.Type, ct)}
	}
	raw, err := readAccessor(b, index, modeler.ReadTextureCoord)
	if err != nil {
		return nil, err
	}
	out := make([]math.Vec2, len(raw))
	for i, v := range raw {
		out[i] = math.NewVec2(v[0], v[1])
	}
	return out, nil
}

// readIndices widens 8, 16 and 32 bit indices to uint32.
func (b *builder) readIndices(index int) ([]uint32, error) {
	acc, err := b.accessor(index)
	if err != nil {
		return nil, err
	}
	if acc.Type != gltf.AccessorScalar {
		return nil, &core.UnsupportedFormatError{What: "index type", Value: acc.Type}
	}
	switch acc.ComponentType {
	case gltf.ComponentUbyte, gltf.ComponentUshort, gltf.ComponentUint:
	default:
		return nil, &core.UnsupportedFormatError{What: "index component type", Value: acc.ComponentType}
	}
	return readAccessor(b, index, modeler.ReadIndices)
}
