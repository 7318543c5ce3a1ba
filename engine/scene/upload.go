package scene

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkexamples/engine/core"
	"github.com/spaghettifunk/vkexamples/engine/math"
	"github.com/spaghettifunk/vkexamples/engine/renderer"
)

var (
	stagingUsage = vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit)
	stagingProps = vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)
	deviceProps  = vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
)

// upload copies the flattened vertices and indices into device local
// buffers with a single transfer submission.
func (b *builder) upload() error {
	m := b.model
	if len(m.vertices) == 0 || len(m.indices) == 0 {
		core.LogDebug("model %s: no geometry to upload", m.name)
		return nil
	}

	vertexData := math.AppendVertices(make([]byte, 0, len(m.vertices)*math.Vertex3DSize), m.vertices)
	indexData := math.AppendIndices(make([]byte, 0, len(m.indices)*4), m.indices)
	vertexSize, indexSize := uint64(len(vertexData)), uint64(len(indexData))

	vertexStaging, err := b.device.CreateBuffer(stagingUsage, stagingProps, vertexSize, vertexData)
	if err != nil {
		return err
	}
	defer b.device.DestroyBuffer(vertexStaging)

	indexStaging, err := b.device.CreateBuffer(stagingUsage, stagingProps, indexSize, indexData)
	if err != nil {
		return err
	}
	defer b.device.DestroyBuffer(indexStaging)

	// Owned by the model from here on, so a failed load releases them.
	m.vertexBuffer, err = b.device.CreateBuffer(
		vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit|vk.BufferUsageTransferDstBit), deviceProps, vertexSize, nil)
	if err != nil {
		return err
	}
	m.indexBuffer, err = b.device.CreateBuffer(
		vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit|vk.BufferUsageTransferDstBit), deviceProps, indexSize, nil)
	if err != nil {
		return err
	}

	err = b.device.SubmitOneShot(b.ctx, func(cmd renderer.CommandRecorder) error {
		cmd.CopyBuffer(vertexStaging, m.vertexBuffer, vertexSize)
		cmd.CopyBuffer(indexStaging, m.indexBuffer, indexSize)
		return nil
	})
	if err != nil {
		return err
	}
	core.LogDebug("model %s: uploaded %d vertex bytes and %d index bytes", m.name, vertexSize, indexSize)
	return nil
}
