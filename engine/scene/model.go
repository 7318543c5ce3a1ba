// Package scene loads glTF scene graphs into a flat node arena with shared
// vertex and index buffers, and records their draw commands.
package scene

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spaghettifunk/vkexamples/engine/math"
	"github.com/spaghettifunk/vkexamples/engine/renderer"
	"github.com/spaghettifunk/vkexamples/engine/renderer/metadata"
)

// NodeID indexes a node in its Model. IDs are stable for the life of the model.
type NodeID int32

const (
	NoParent   NodeID = -1
	NoMaterial int32  = -1
	NoTexture  int32  = -1
	NoImage    int32  = -1
)

/**
 * @brief A contiguous range of the model's index buffer drawn with one material.
 */
type Primitive struct {
	FirstIndex uint32
	IndexCount uint32
	/** @brief Index into Model.Materials, or NoMaterial. */
	Material int32
}

type Mesh struct {
	Primitives []Primitive
}

/**
 * @brief A scene graph node. Matrix is relative to the parent.
 */
type Node struct {
	Name     string
	Matrix   math.Mat4
	Parent   NodeID
	Children []NodeID
	Mesh     Mesh
}

type Material struct {
	/** @brief Defaults to opaque white. */
	BaseColorFactor math.Vec4
	/** @brief Index into Model.Textures, or NoTexture. */
	BaseColorTextureIndex int32
}

type Texture struct {
	/** @brief Index into Model.Images, or NoImage. */
	ImageIndex int32
}

/**
 * @brief A decoded image resident on the device, with the descriptor set it
 * is bound through.
 */
type Image struct {
	Name          string
	Texture       *metadata.Texture
	DescriptorSet *metadata.DescriptorSet
}

// Model is a loaded scene. It is read-only once Load returns and owns its
// device resources until Destroy.
type Model struct {
	id     uuid.UUID
	name   string
	device renderer.GraphicsDevice

	nodes     []Node
	roots     []NodeID
	materials []Material
	textures  []Texture
	images    []Image
	// fallback is bound for untextured primitives when a material layout
	// was supplied.
	fallback Image

	vertices []math.Vertex3D
	indices  []uint32

	vertexBuffer *metadata.Buffer
	indexBuffer  *metadata.Buffer

	destroyed bool
}

func newModel(name string, device renderer.GraphicsDevice) *Model {
	return &Model{
		id:     uuid.New(),
		name:   name,
		device: device,
	}
}

func (m *Model) ID() uuid.UUID  { return m.id }
func (m *Model) Name() string   { return m.name }
func (m *Model) NodeCount() int { return len(m.nodes) }

// Roots returns the top level nodes in scene order.
func (m *Model) Roots() []NodeID {
	return append([]NodeID(nil), m.roots...)
}

func (m *Model) Node(id NodeID) (Node, bool) {
	if id < 0 || int(id) >= len(m.nodes) {
		return Node{}, false
	}
	return m.nodes[id], true
}

func (m *Model) Materials() []Material {
	return append([]Material(nil), m.materials...)
}

func (m *Model) Textures() []Texture {
	return append([]Texture(nil), m.textures...)
}

func (m *Model) Images() []Image {
	return append([]Image(nil), m.images...)
}

func (m *Model) Vertices() []math.Vertex3D {
	return append([]math.Vertex3D(nil), m.vertices...)
}

func (m *Model) Indices() []uint32 {
	return append([]uint32(nil), m.indices...)
}

func (m *Model) IndexCount() uint32 { return uint32(len(m.indices)) }

func (m *Model) VertexBuffer() *metadata.Buffer { return m.vertexBuffer }
func (m *Model) IndexBuffer() *metadata.Buffer  { return m.indexBuffer }

// WorldMatrix multiplies the local matrices from the root down to id.
func (m *Model) WorldMatrix(id NodeID) math.Mat4 {
	world := m.nodes[id].Matrix
	for p := m.nodes[id].Parent; p != NoParent; p = m.nodes[p].Parent {
		world = m.nodes[p].Matrix.Mul(world)
	}
	return world
}

// LocalBounds returns the extents of every vertex position, ignoring node
// transforms.
func (m *Model) LocalBounds() math.Extents3D {
	if len(m.vertices) == 0 {
		return math.Extents3D{}
	}
	bounds := math.Extents3D{Min: m.vertices[0].Position, Max: m.vertices[0].Position}
	for _, v := range m.vertices[1:] {
		bounds.Min = bounds.Min.Min(v.Position)
		bounds.Max = bounds.Max.Max(v.Position)
	}
	return bounds
}

// Validate checks that every primitive lies inside the index buffer and
// every material reference resolves.
func (m *Model) Validate() error {
	for id, n := range m.nodes {
		for i, p := range n.Mesh.Primitives {
			if uint64(p.FirstIndex)+uint64(p.IndexCount) > uint64(len(m.indices)) {
				return fmt.Errorf("node %d primitive %d: indices [%d, %d) exceed %d", id, i, p.FirstIndex, p.FirstIndex+p.IndexCount, len(m.indices))
			}
			if p.Material != NoMaterial && (p.Material < 0 || int(p.Material) >= len(m.materials)) {
				return fmt.Errorf("node %d primitive %d: material %d out of range", id, i, p.Material)
			}
		}
	}
	return nil
}

func (m *Model) hasUntexturedPrimitive() bool {
	for _, n := range m.nodes {
		for _, p := range n.Mesh.Primitives {
			if p.IndexCount > 0 && m.imageSet(p) == nil {
				return true
			}
		}
	}
	return false
}

// Destroy releases the device resources. It is safe to call more than once.
func (m *Model) Destroy() {
	if m.destroyed {
		return
	}
	m.destroyed = true

	for i := range m.images {
		m.releaseImage(&m.images[i])
	}
	m.releaseImage(&m.fallback)
	if m.vertexBuffer != nil {
		m.device.DestroyBuffer(m.vertexBuffer)
		m.vertexBuffer = nil
	}
	if m.indexBuffer != nil {
		m.device.DestroyBuffer(m.indexBuffer)
		m.indexBuffer = nil
	}
}

func (m *Model) releaseImage(img *Image) {
	if img.DescriptorSet != nil {
		m.device.DestroyDescriptorSet(img.DescriptorSet)
		img.DescriptorSet = nil
	}
	if img.Texture != nil {
		m.device.DestroyTexture(img.Texture)
		img.Texture = nil
	}
}
