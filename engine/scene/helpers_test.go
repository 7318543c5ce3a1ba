package scene

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	gomath "math"
	"testing"

	"github.com/qmuntal/gltf"
	"github.com/stretchr/testify/require"
)

// docBuilder assembles an in-memory glTF document with a single buffer.
type docBuilder struct {
	doc *gltf.Document
	buf []byte
}

func newDocBuilder() *docBuilder {
	return &docBuilder{doc: &gltf.Document{Buffers: []*gltf.Buffer{{}}}}
}

func (d *docBuilder) view(data []byte, stride int) int {
	for len(d.buf)%4 != 0 {
		d.buf = append(d.buf, 0)
	}
	offset := len(d.buf)
	d.buf = append(d.buf, data...)
	d.doc.BufferViews = append(d.doc.BufferViews, &gltf.BufferView{
		Buffer:     0,
		ByteOffset: offset,
		ByteLength: len(data),
		ByteStride: stride,
	})
	return len(d.doc.BufferViews) - 1
}

func (d *docBuilder) accessor(view int, offset int, ct gltf.ComponentType, t gltf.AccessorType, count int) int {
	d.doc.Accessors = append(d.doc.Accessors, &gltf.Accessor{
		BufferView:    gltf.Index(view),
		ByteOffset:    offset,
		ComponentType: ct,
		Type:          t,
		Count:         count,
	})
	return len(d.doc.Accessors) - 1
}

func floats(values ...float32) []byte {
	out := make([]byte, 0, len(values)*4)
	for _, v := range values {
		out = binary.LittleEndian.AppendUint32(out, gomath.Float32bits(v))
	}
	return out
}

func (d *docBuilder) positions(values ...float32) int {
	return d.accessor(d.view(floats(values...), 0), 0, gltf.ComponentFloat, gltf.AccessorVec3, len(values)/3)
}

func (d *docBuilder) indices8(values ...uint8) int {
	return d.accessor(d.view(values, 0), 0, gltf.ComponentUbyte, gltf.AccessorScalar, len(values))
}

func (d *docBuilder) indices16(values ...uint16) int {
	data := make([]byte, 0, len(values)*2)
	for _, v := range values {
		data = binary.LittleEndian.AppendUint16(data, v)
	}
	return d.accessor(d.view(data, 0), 0, gltf.ComponentUshort, gltf.AccessorScalar, len(values))
}

func (d *docBuilder) indices32(values ...uint32) int {
	data := make([]byte, 0, len(values)*4)
	for _, v := range values {
		data = binary.LittleEndian.AppendUint32(data, v)
	}
	return d.accessor(d.view(data, 0), 0, gltf.ComponentUint, gltf.AccessorScalar, len(values))
}

// triangle adds a mesh with one indexed triangle and returns its index.
func (d *docBuilder) triangle(material *int) int {
	pos := d.positions(0, 0, 0, 1, 0, 0, 0, 1, 0)
	idx := d.indices16(0, 1, 2)
	return d.mesh(&gltf.Primitive{
		Attributes: map[string]int{gltf.POSITION: pos},
		Indices:    gltf.Index(idx),
		Material:   material,
	})
}

func (d *docBuilder) mesh(primitives ...*gltf.Primitive) int {
	d.doc.Meshes = append(d.doc.Meshes, &gltf.Mesh{Primitives: primitives})
	return len(d.doc.Meshes) - 1
}

func (d *docBuilder) node(n *gltf.Node) int {
	d.doc.Nodes = append(d.doc.Nodes, n)
	return len(d.doc.Nodes) - 1
}

func (d *docBuilder) scene(roots ...int) {
	d.doc.Scenes = append(d.doc.Scenes, &gltf.Scene{Nodes: roots})
	d.doc.Scene = gltf.Index(len(d.doc.Scenes) - 1)
}

// pngImage embeds a w x 1 NRGBA png in the buffer and returns the image index.
func (d *docBuilder) pngImage(t *testing.T, pixels ...color.NRGBA) int {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, len(pixels), 1))
	for x, c := range pixels {
		img.SetNRGBA(x, 0, c)
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	d.doc.Images = append(d.doc.Images, &gltf.Image{
		MimeType:   "image/png",
		BufferView: gltf.Index(d.view(buf.Bytes(), 0)),
	})
	return len(d.doc.Images) - 1
}

func (d *docBuilder) build() *Document {
	d.doc.Buffers[0].Data = d.buf
	d.doc.Buffers[0].ByteLength = len(d.buf)
	return NewDocument(d.doc)
}
