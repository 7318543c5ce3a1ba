package scene

import (
	"context"
	"encoding/base64"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/qmuntal/gltf"
	"github.com/spaghettifunk/vkexamples/engine/core"
	"github.com/spaghettifunk/vkexamples/engine/math"
	"github.com/spaghettifunk/vkexamples/engine/renderer/headless"
	"github.com/spaghettifunk/vkexamples/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLayout = &metadata.DescriptorSetLayout{Name: "material"}

func loadDoc(t *testing.T, device *headless.Device, doc *Document) *Model {
	t.Helper()
	m, err := LoadDocument(context.Background(), device, doc, t.TempDir(), Options{DescriptorSetLayout: testLayout})
	require.NoError(t, err)
	t.Cleanup(m.Destroy)
	return m
}

func TestWorldMatrixFollowsHierarchy(t *testing.T) {
	d := newDocBuilder()
	mesh := d.triangle(nil)
	leaf := d.node(&gltf.Node{Name: "leaf", Translation: [3]float64{0, 1, 0}, Mesh: gltf.Index(mesh)})
	mid := d.node(&gltf.Node{Name: "mid", Scale: [3]float64{2, 2, 2}, Children: []int{leaf}})
	root := d.node(&gltf.Node{Name: "root", Translation: [3]float64{1, 0, 0}, Children: []int{mid}})
	d.scene(root)

	device := headless.NewDevice()
	m := loadDoc(t, device, d.build())

	require.Equal(t, 3, m.NodeCount())
	assert.Equal(t, []NodeID{0}, m.Roots())
	leafNode, ok := m.Node(2)
	require.True(t, ok)
	assert.Equal(t, "leaf", leafNode.Name)
	assert.Equal(t, NodeID(1), leafNode.Parent)

	t1 := math.NewMat4Translation(math.NewVec3(1, 0, 0))
	t2 := math.NewMat4Scale(math.NewVec3(2, 2, 2))
	t3 := math.NewMat4Translation(math.NewVec3(0, 1, 0))
	want := t1.Mul(t2).Mul(t3)
	assert.True(t, m.WorldMatrix(2).Compare(want, 1e-6))
	assert.Equal(t, []float32{1, 2, 0}, want.Data[12:15])

	rec := &headless.Recorder{}
	m.Draw(rec, &metadata.PipelineLayout{Name: "scene"})
	pushes := rec.Filter(headless.CmdPushConstants)
	require.Len(t, pushes, 1)
	assert.Equal(t, want.Bytes(), pushes[0].Data)
	assert.Equal(t, uint32(0), pushes[0].PushOffset)
	assert.Equal(t, vk.ShaderStageFlags(vk.ShaderStageVertexBit), pushes[0].Stages)
	assert.Len(t, pushes[0].Data, math.Mat4Size)
}

func TestExplicitMatrixWins(t *testing.T) {
	d := newDocBuilder()
	matrix := [16]float64{2, 0, 0, 0, 0, 2, 0, 0, 0, 0, 2, 0, 5, 6, 7, 1}
	n := d.node(&gltf.Node{Matrix: matrix, Translation: [3]float64{100, 100, 100}, Mesh: gltf.Index(d.triangle(nil))})
	d.scene(n)

	m := loadDoc(t, headless.NewDevice(), d.build())
	node, _ := m.Node(0)
	assert.Equal(t, math.NewMat4FromColumnMajor(matrix), node.Matrix)
}

func TestIndicesAreWidenedAndOffset(t *testing.T) {
	d := newDocBuilder()
	pos := func() int { return d.positions(0, 0, 0, 1, 0, 0, 0, 1, 0) }
	mesh := d.mesh(
		&gltf.Primitive{Attributes: map[string]int{gltf.POSITION: pos()}, Indices: gltf.Index(d.indices8(0, 1, 2))},
		&gltf.Primitive{Attributes: map[string]int{gltf.POSITION: pos()}, Indices: gltf.Index(d.indices16(2, 1, 0))},
		&gltf.Primitive{Attributes: map[string]int{gltf.POSITION: pos()}, Indices: gltf.Index(d.indices32(1, 2, 0))},
	)
	d.scene(d.node(&gltf.Node{Mesh: gltf.Index(mesh)}))

	device := headless.NewDevice()
	m := loadDoc(t, device, d.build())

	assert.Equal(t, []uint32{0, 1, 2, 5, 4, 3, 7, 8, 6}, m.Indices())
	assert.Len(t, m.Vertices(), 9)
	node, _ := m.Node(0)
	require.Len(t, node.Mesh.Primitives, 3)
	for i, p := range node.Mesh.Primitives {
		assert.Equal(t, uint32(i*3), p.FirstIndex)
		assert.Equal(t, uint32(3), p.IndexCount)
		assert.Equal(t, NoMaterial, p.Material)
		assert.LessOrEqual(t, p.FirstIndex+p.IndexCount, m.IndexCount())
	}
	require.NoError(t, m.Validate())

	// the device local index buffer holds the widened values
	assert.Equal(t, math.AppendIndices(nil, m.Indices()), device.Contents(m.IndexBuffer()))
	assert.Equal(t, math.AppendVertices(nil, m.Vertices()), device.Contents(m.VertexBuffer()))
	assert.Equal(t, 1, device.Submits())
	assert.Equal(t, 2, device.LiveBuffers())
}

func TestUnsupportedIndexComponentType(t *testing.T) {
	d := newDocBuilder()
	pos := d.positions(0, 0, 0, 1, 0, 0, 0, 1, 0)
	idx := d.accessor(d.view(floats(0, 1, 2), 0), 0, gltf.ComponentFloat, gltf.AccessorScalar, 3)
	mesh := d.mesh(&gltf.Primitive{Attributes: map[string]int{gltf.POSITION: pos}, Indices: gltf.Index(idx)})
	d.scene(d.node(&gltf.Node{Mesh: gltf.Index(mesh)}))

	device := headless.NewDevice()
	_, err := LoadDocument(context.Background(), device, d.build(), "", Options{})
	assert.ErrorIs(t, err, core.ErrUnsupportedFormat)
	var unsupported *core.UnsupportedFormatError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "index component type", unsupported.What)
	assert.Zero(t, device.LiveBuffers())
}

func TestNonIndexedPrimitiveGetsSequentialIndices(t *testing.T) {
	d := newDocBuilder()
	first := d.triangle(nil)
	second := d.mesh(&gltf.Primitive{Attributes: map[string]int{gltf.POSITION: d.positions(0, 0, 0, 1, 1, 1, 2, 2, 2)}})
	d.scene(d.node(&gltf.Node{Mesh: gltf.Index(first)}), d.node(&gltf.Node{Mesh: gltf.Index(second)}))

	m := loadDoc(t, headless.NewDevice(), d.build())
	assert.Equal(t, []uint32{0, 1, 2, 3, 4, 5}, m.Indices())
	assert.Len(t, m.Roots(), 2)
}

func TestInterleavedAttributes(t *testing.T) {
	d := newDocBuilder()
	// position, normal interleaved with a 24 byte stride
	view := d.view(floats(
		0, 0, 0, 0, 0, 2,
		1, 0, 0, 0, 3, 0,
		0, 1, 0, 0, 0, 0,
	), 24)
	pos := d.accessor(view, 0, gltf.ComponentFloat, gltf.AccessorVec3, 3)
	nrm := d.accessor(view, 12, gltf.ComponentFloat, gltf.AccessorVec3, 3)
	// ubyte VEC2 elements are padded to 4 bytes
	uvView := d.view([]byte{0, 255, 0, 0, 255, 0, 0, 0, 51, 102, 0, 0}, 0)
	d.doc.Accessors = append(d.doc.Accessors, &gltf.Accessor{
		BufferView:    gltf.Index(uvView),
		ComponentType: gltf.ComponentUbyte,
		Normalized:    true,
		Type:          gltf.AccessorVec2,
		Count:         3,
	})
	uv := len(d.doc.Accessors) - 1
	mesh := d.mesh(&gltf.Primitive{Attributes: map[string]int{gltf.POSITION: pos, gltf.NORMAL: nrm, gltf.TEXCOORD_0: uv}})
	d.scene(d.node(&gltf.Node{Mesh: gltf.Index(mesh)}))

	m := loadDoc(t, headless.NewDevice(), d.build())
	v := m.Vertices()
	require.Len(t, v, 3)
	assert.Equal(t, math.NewVec3(1, 0, 0), v[1].Position)
	assert.Equal(t, math.NewVec3(0, 0, 1), v[0].Normal)
	assert.Equal(t, math.NewVec3(0, 1, 0), v[1].Normal)
	// zero length normals stay zero
	assert.Equal(t, math.NewVec3(0, 0, 0), v[2].Normal)
	assert.Equal(t, math.NewVec2(0, 1), v[0].Texcoord)
	assert.InDelta(t, 0.2, v[2].Texcoord.X, 1e-6)
	assert.Equal(t, math.NewVec4One(), v[0].Colour)

	bounds := m.LocalBounds()
	assert.Equal(t, math.NewVec3(0, 0, 0), bounds.Min)
	assert.Equal(t, math.NewVec3(1, 1, 0), bounds.Max)
}

func TestMaterialsAndTextures(t *testing.T) {
	d := newDocBuilder()
	img := d.pngImage(t, color.NRGBA{10, 20, 30, 40}, color.NRGBA{50, 60, 70, 80})
	d.doc.Textures = []*gltf.Texture{{Source: gltf.Index(img)}, {}}
	d.doc.Materials = []*gltf.Material{
		{PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorFactor:  &[4]float64{1.5, 0.5, -1, 1},
			BaseColorTexture: &gltf.TextureInfo{Index: 0},
		}},
		{},
	}
	pos := d.positions(0, 0, 0, 1, 0, 0, 0, 1, 0)
	idx := d.indices16(0, 1, 2)
	mesh := d.mesh(
		&gltf.Primitive{Attributes: map[string]int{gltf.POSITION: pos}, Indices: gltf.Index(idx), Material: gltf.Index(0)},
		&gltf.Primitive{Attributes: map[string]int{gltf.POSITION: pos}, Indices: gltf.Index(idx), Material: gltf.Index(1)},
	)
	d.scene(d.node(&gltf.Node{Mesh: gltf.Index(mesh)}))

	device := headless.NewDevice()
	m := loadDoc(t, device, d.build())

	mats := m.Materials()
	require.Len(t, mats, 2)
	assert.Equal(t, math.Vec4{X: 1, Y: 0.5, Z: 0, W: 1}, mats[0].BaseColorFactor)
	assert.Equal(t, int32(0), mats[0].BaseColorTextureIndex)
	assert.Equal(t, math.NewVec4One(), mats[1].BaseColorFactor)
	assert.Equal(t, NoTexture, mats[1].BaseColorTextureIndex)
	assert.Equal(t, []Texture{{ImageIndex: 0}, {ImageIndex: NoImage}}, m.Textures())

	images := m.Images()
	require.Len(t, images, 1)
	assert.Equal(t, []byte{10, 20, 30, 40, 50, 60, 70, 80}, device.Pixels(images[0].Texture))
	assert.Equal(t, uint32(2), images[0].Texture.Width)
	require.NotNil(t, images[0].DescriptorSet)

	rec := &headless.Recorder{}
	m.Draw(rec, &metadata.PipelineLayout{})
	kinds := make([]headless.CommandKind, 0, len(rec.Commands))
	for _, c := range rec.Commands {
		kinds = append(kinds, c.Kind)
	}
	assert.Equal(t, []headless.CommandKind{
		headless.CmdBindVertexBuffer,
		headless.CmdBindIndexBuffer,
		headless.CmdPushConstants,
		headless.CmdBindDescriptorSet,
		headless.CmdDrawIndexed,
		headless.CmdBindDescriptorSet,
		headless.CmdDrawIndexed,
	}, kinds)
	binds := rec.Filter(headless.CmdBindDescriptorSet)
	assert.Same(t, images[0].DescriptorSet, binds[0].Set)
	// the untextured primitive samples a white fallback
	fallback, ok := binds[1].Set.InternalData.(*metadata.Texture)
	require.True(t, ok)
	assert.Equal(t, []byte{0xff, 0xff, 0xff, 0xff}, device.Pixels(fallback))
	assert.Equal(t, 2, device.LiveTextures())
	assert.Equal(t, 2, device.LiveDescriptorSets())
	for _, draw := range rec.Draws() {
		assert.Equal(t, uint32(1), draw.InstanceCount)
		assert.Equal(t, uint32(0), draw.FirstInstance)
		assert.Equal(t, int32(0), draw.VertexOffset)
	}
	assert.Equal(t, uint32(3), rec.Draws()[1].FirstIndex)
}

func TestExpandRGBToRGBA(t *testing.T) {
	assert.Equal(t,
		[]byte{10, 20, 30, 0xFF, 40, 50, 60, 0xFF},
		ExpandRGBToRGBA([]byte{10, 20, 30, 40, 50, 60}, 2, 1))
}

func TestEmptySceneDrawsNothing(t *testing.T) {
	d := newDocBuilder()
	d.scene()

	device := headless.NewDevice()
	m := loadDoc(t, device, d.build())
	assert.Empty(t, m.Roots())
	assert.Nil(t, m.VertexBuffer())
	assert.Zero(t, device.LiveBuffers())

	rec := &headless.Recorder{}
	m.Draw(rec, &metadata.PipelineLayout{})
	assert.Empty(t, rec.Commands)
}

func TestFailedUploadReleasesEverything(t *testing.T) {
	d := newDocBuilder()
	d.pngImage(t, color.NRGBA{1, 2, 3, 4})
	d.scene(d.node(&gltf.Node{Mesh: gltf.Index(d.triangle(nil))}))
	doc := d.build()

	// texture, descriptor set, two staging buffers and the vertex buffer
	// succeed; the index buffer fails
	device := headless.NewDevice()
	device.FailAfter(5)
	_, err := LoadDocument(context.Background(), device, doc, "", Options{})
	assert.ErrorIs(t, err, core.ErrResourceCreation)
	assert.Zero(t, device.LiveBuffers())
	assert.Zero(t, device.LiveTextures())
	assert.Zero(t, device.LiveDescriptorSets())
}

func TestCancelledLoad(t *testing.T) {
	d := newDocBuilder()
	d.pngImage(t, color.NRGBA{1, 2, 3, 4})
	d.scene(d.node(&gltf.Node{Mesh: gltf.Index(d.triangle(nil))}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	device := headless.NewDevice()
	_, err := LoadDocument(ctx, device, d.build(), "", Options{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, device.LiveTextures())
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		build func(d *docBuilder)
	}{
		{"accessor out of range", func(d *docBuilder) {
			mesh := d.mesh(&gltf.Primitive{Attributes: map[string]int{gltf.POSITION: 7}})
			d.scene(d.node(&gltf.Node{Mesh: gltf.Index(mesh)}))
		}},
		{"accessor past its view", func(d *docBuilder) {
			pos := d.accessor(d.view(floats(0, 0, 0), 0), 0, gltf.ComponentFloat, gltf.AccessorVec3, 2)
			mesh := d.mesh(&gltf.Primitive{Attributes: map[string]int{gltf.POSITION: pos}})
			d.scene(d.node(&gltf.Node{Mesh: gltf.Index(mesh)}))
		}},
		{"index past the primitive", func(d *docBuilder) {
			pos := d.positions(0, 0, 0, 1, 0, 0, 0, 1, 0)
			mesh := d.mesh(&gltf.Primitive{Attributes: map[string]int{gltf.POSITION: pos}, Indices: gltf.Index(d.indices16(0, 1, 3))})
			d.scene(d.node(&gltf.Node{Mesh: gltf.Index(mesh)}))
		}},
		{"node cycle", func(d *docBuilder) {
			a := d.node(&gltf.Node{Children: []int{1}})
			d.node(&gltf.Node{Children: []int{a}})
			d.scene(a)
		}},
		{"unknown material", func(d *docBuilder) {
			d.scene(d.node(&gltf.Node{Mesh: gltf.Index(d.triangle(gltf.Index(3)))}))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newDocBuilder()
			tt.build(d)
			device := headless.NewDevice()
			m, err := LoadDocument(context.Background(), device, d.build(), "", Options{})
			assert.Nil(t, m)
			assert.ErrorIs(t, err, core.ErrParse)
			assert.Zero(t, device.LiveBuffers())
		})
	}
}

func TestPositionMustBeVec3Float(t *testing.T) {
	d := newDocBuilder()
	pos := d.accessor(d.view(floats(0, 0, 1, 0), 0), 0, gltf.ComponentFloat, gltf.AccessorVec2, 2)
	mesh := d.mesh(&gltf.Primitive{Attributes: map[string]int{gltf.POSITION: pos}})
	d.scene(d.node(&gltf.Node{Mesh: gltf.Index(mesh)}))

	_, err := LoadDocument(context.Background(), headless.NewDevice(), d.build(), "", Options{})
	assert.ErrorIs(t, err, core.ErrUnsupportedFormat)
}

func TestLoadFile(t *testing.T) {
	data := floats(0, 0, 0, 1, 0, 0, 0, 1, 0)
	doc := fmt.Sprintf(`{
  "asset": {"version": "2.0"},
  "scene": 0,
  "scenes": [{"nodes": [0]}],
  "nodes": [{"name": "tri", "mesh": 0, "translation": [0, 0, -1]}],
  "meshes": [{"primitives": [{"attributes": {"POSITION": 0}}]}],
  "accessors": [{"bufferView": 0, "componentType": 5126, "count": 3, "type": "VEC3"}],
  "bufferViews": [{"buffer": 0, "byteLength": %d}],
  "buffers": [{"byteLength": %d, "uri": "data:application/octet-stream;base64,%s"}]
}`, len(data), len(data), base64.StdEncoding.EncodeToString(data))

	path := filepath.Join(t.TempDir(), "triangle.gltf")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	device := headless.NewDevice()
	m, err := Load(context.Background(), device, path, Options{})
	require.NoError(t, err)
	defer m.Destroy()

	assert.Equal(t, "triangle", m.Name())
	assert.Equal(t, uint32(3), m.IndexCount())
	assert.True(t, m.WorldMatrix(0).Compare(math.NewMat4Translation(math.NewVec3(0, 0, -1)), 1e-6))

	m.Destroy()
	m.Destroy()
	assert.Zero(t, device.LiveBuffers())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(context.Background(), headless.NewDevice(), filepath.Join(t.TempDir(), "missing.gltf"), Options{})
	assert.ErrorIs(t, err, core.ErrParse)
}
