package renderer

import (
	"context"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkexamples/engine/renderer/metadata"
)

// GraphicsDevice is what the examples need from the device bootstrap:
// allocation of buffers, textures and descriptor sets plus synchronous
// one-shot submission on the transfer queue.
type GraphicsDevice interface {
	// CreateBuffer allocates a buffer with memory matching props. When data is
	// not nil the memory must be host visible and data is copied in.
	CreateBuffer(usage vk.BufferUsageFlags, props vk.MemoryPropertyFlags, size uint64, data []byte) (*metadata.Buffer, error)
	DestroyBuffer(buffer *metadata.Buffer)
	// CreateTextureFromPixels uploads tightly packed pixels into a sampled,
	// device local image with a view and a sampler.
	CreateTextureFromPixels(pixels []byte, format vk.Format, width, height uint32) (*metadata.Texture, error)
	DestroyTexture(texture *metadata.Texture)
	// CreateDescriptorSet allocates a set against layout and binds texture
	// as a combined image sampler at binding 0.
	CreateDescriptorSet(layout *metadata.DescriptorSetLayout, texture *metadata.Texture) (*metadata.DescriptorSet, error)
	// DestroyDescriptorSet returns set to the pool it was allocated from.
	DestroyDescriptorSet(set *metadata.DescriptorSet)
	// SubmitOneShot records into a fresh command buffer, submits it and
	// blocks until the queue signals completion.
	SubmitOneShot(ctx context.Context, record func(cmd CommandRecorder) error) error
}

// LayoutDevice is implemented by devices that back descriptor set and
// pipeline layouts with device objects. Pipeline layouts carry one 64 byte
// vertex stage push constant range at offset 0.
type LayoutDevice interface {
	CreateDescriptorSetLayout(name string, bindings []vk.DescriptorSetLayoutBinding) (*metadata.DescriptorSetLayout, error)
	DestroyDescriptorSetLayout(layout *metadata.DescriptorSetLayout)
	CreatePipelineLayout(name string, setLayouts ...*metadata.DescriptorSetLayout) (*metadata.PipelineLayout, error)
	DestroyPipelineLayout(layout *metadata.PipelineLayout)
}

// CommandRecorder is the subset of command buffer recording the examples use.
type CommandRecorder interface {
	CopyBuffer(src, dst *metadata.Buffer, size uint64)
	BindVertexBuffer(buffer *metadata.Buffer, offset uint64)
	BindIndexBuffer(buffer *metadata.Buffer, offset uint64, indexType vk.IndexType)
	PushConstants(layout *metadata.PipelineLayout, stages vk.ShaderStageFlags, offset uint32, data []byte)
	BindDescriptorSet(layout *metadata.PipelineLayout, set *metadata.DescriptorSet)
	DrawIndexed(indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32)
}

// StageBuffer copies data into a device local buffer through a host visible
// staging buffer. The staging buffer is released before returning.
func StageBuffer(ctx context.Context, device GraphicsDevice, usage vk.BufferUsageFlags, data []byte) (*metadata.Buffer, error) {
	size := uint64(len(data))
	staging, err := device.CreateBuffer(
		vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit),
		size, data)
	if err != nil {
		return nil, err
	}
	defer device.DestroyBuffer(staging)

	target, err := device.CreateBuffer(
		usage|vk.BufferUsageFlags(vk.BufferUsageTransferDstBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
		size, nil)
	if err != nil {
		return nil, err
	}

	if err := device.SubmitOneShot(ctx, func(cmd CommandRecorder) error {
		cmd.CopyBuffer(staging, target, size)
		return nil
	}); err != nil {
		device.DestroyBuffer(target)
		return nil, err
	}
	return target, nil
}
