package scene

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkexamples/engine/renderer"
	"github.com/spaghettifunk/vkexamples/engine/renderer/metadata"
)

// Draw binds the shared buffers once and draws every root in scene order.
func (m *Model) Draw(cmd renderer.CommandRecorder, layout *metadata.PipelineLayout) {
	if m.vertexBuffer == nil || m.indexBuffer == nil {
		return
	}
	cmd.BindVertexBuffer(m.vertexBuffer, 0)
	cmd.BindIndexBuffer(m.indexBuffer, 0, vk.IndexTypeUint32)
	for _, root := range m.roots {
		m.DrawNode(cmd, layout, root)
	}
}

// DrawNode pushes the world matrix of id and draws its primitives, then
// recurses into the children. Buffers must already be bound.
func (m *Model) DrawNode(cmd renderer.CommandRecorder, layout *metadata.PipelineLayout, id NodeID) {
	node := &m.nodes[id]
	if len(node.Mesh.Primitives) > 0 {
		world := m.WorldMatrix(id)
		cmd.PushConstants(layout, vk.ShaderStageFlags(vk.ShaderStageVertexBit), 0, world.Bytes())
		for _, p := range node.Mesh.Primitives {
			if p.IndexCount == 0 {
				continue
			}
			if set := m.descriptorSet(p); set != nil {
				cmd.BindDescriptorSet(layout, set)
			}
			cmd.DrawIndexed(p.IndexCount, 1, p.FirstIndex, 0, 0)
		}
	}
	for _, child := range node.Children {
		m.DrawNode(cmd, layout, child)
	}
}

// descriptorSet follows material -> texture -> image. Untextured primitives
// get the fallback set, which is nil when no material layout was given.
func (m *Model) descriptorSet(p Primitive) *metadata.DescriptorSet {
	if set := m.imageSet(p); set != nil {
		return set
	}
	return m.fallback.DescriptorSet
}

func (m *Model) imageSet(p Primitive) *metadata.DescriptorSet {
	if p.Material == NoMaterial {
		return nil
	}
	tex := m.materials[p.Material].BaseColorTextureIndex
	if tex == NoTexture {
		return nil
	}
	img := m.textures[tex].ImageIndex
	if img == NoImage {
		return nil
	}
	return m.images[img].DescriptorSet
}
