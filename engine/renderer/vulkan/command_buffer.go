package vulkan

import (
	"context"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkexamples/engine/core"
	"github.com/spaghettifunk/vkexamples/engine/renderer"
	"github.com/spaghettifunk/vkexamples/engine/renderer/metadata"
)

type VulkanCommandBufferState int

const (
	COMMAND_BUFFER_STATE_READY VulkanCommandBufferState = iota
	COMMAND_BUFFER_STATE_RECORDING
	COMMAND_BUFFER_STATE_IN_RENDER_PASS
	COMMAND_BUFFER_STATE_RECORDING_ENDED
	COMMAND_BUFFER_STATE_SUBMITTED
	COMMAND_BUFFER_STATE_NOT_ALLOCATED
)

type VulkanCommandBuffer struct {
	Handle vk.CommandBuffer
	// Command buffer state.
	State VulkanCommandBufferState
}

func NewVulkanCommandBuffer(device *Device, pool vk.CommandPool, isPrimary bool) (*VulkanCommandBuffer, error) {
	vCommandBuffer := &VulkanCommandBuffer{
		State: COMMAND_BUFFER_STATE_NOT_ALLOCATED,
	}

	level := vk.CommandBufferLevelSecondary
	if isPrimary {
		level = vk.CommandBufferLevelPrimary
	}

	allocateInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        pool,
		CommandBufferCount: 1,
		Level:              level,
	}

	handles := make([]vk.CommandBuffer, 1)
	err := device.locks.SafeCall(CommandBufferManagement, func() error {
		if res := vk.AllocateCommandBuffers(device.LogicalDevice, &allocateInfo, handles); res != vk.Success {
			return resultError("command buffer", res)
		}
		return nil
	})
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	vCommandBuffer.Handle = handles[0]
	vCommandBuffer.State = COMMAND_BUFFER_STATE_READY

	return vCommandBuffer, nil
}

func (v *VulkanCommandBuffer) Free(device *Device, pool vk.CommandPool) {
	_ = device.locks.SafeCall(CommandBufferManagement, func() error {
		vk.FreeCommandBuffers(device.LogicalDevice, pool, 1, []vk.CommandBuffer{v.Handle})
		return nil
	})
	v.Handle = nil
	v.State = COMMAND_BUFFER_STATE_NOT_ALLOCATED
}

func (v *VulkanCommandBuffer) Begin(isSingleUse, isRenderpassContinue, isSimultaneousUse bool) error {
	vBeginInfo := &vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: 0,
	}

	if isSingleUse {
		vBeginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit)
	}
	if isRenderpassContinue {
		vBeginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageRenderPassContinueBit)
	}
	if isSimultaneousUse {
		vBeginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageSimultaneousUseBit)
	}

	if res := vk.BeginCommandBuffer(v.Handle, vBeginInfo); res != vk.Success {
		err := resultError("command buffer begin", res)
		core.LogError(err.Error())
		return err
	}
	v.State = COMMAND_BUFFER_STATE_RECORDING

	return nil
}

func (v *VulkanCommandBuffer) End() error {
	if res := vk.EndCommandBuffer(v.Handle); res != vk.Success {
		err := resultError("command buffer end", res)
		core.LogError(err.Error())
		return err
	}
	v.State = COMMAND_BUFFER_STATE_RECORDING_ENDED
	return nil
}

func (v *VulkanCommandBuffer) UpdateSubmitted() {
	v.State = COMMAND_BUFFER_STATE_SUBMITTED
}

func (v *VulkanCommandBuffer) Reset() {
	v.State = COMMAND_BUFFER_STATE_READY
}

/**
 * Allocates a primary command buffer from the transient pool and begins recording.
 */
func AllocateAndBeginSingleUse(device *Device) (*VulkanCommandBuffer, error) {
	cb, err := NewVulkanCommandBuffer(device, device.transientPool, true)
	if err != nil {
		return nil, err
	}
	if err := cb.Begin(true, false, false); err != nil {
		cb.Free(device, device.transientPool)
		return nil, err
	}
	return cb, nil
}

/**
 * Ends recording, submits to the queue, waits on a fence and frees the command buffer.
 */
func (v *VulkanCommandBuffer) EndSingleUse(device *Device) error {
	defer v.Free(device, device.transientPool)

	if err := v.End(); err != nil {
		return err
	}

	fence, err := NewFence(device, false)
	if err != nil {
		return err
	}
	defer fence.Destroy(device)

	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{v.Handle},
	}
	err = device.locks.SafeQueueCall(device.QueueFamilyIndex, func() error {
		if res := vk.QueueSubmit(device.Queue, 1, []vk.SubmitInfo{submitInfo}, fence.Handle); res != vk.Success {
			return resultError("queue submit", res)
		}
		return nil
	})
	if err != nil {
		core.LogError(err.Error())
		return err
	}
	v.UpdateSubmitted()

	return fence.Wait(device, device.fenceTimeout)
}

// SubmitOneShot records into a single use command buffer, submits it and
// waits for completion.
func (d *Device) SubmitOneShot(ctx context.Context, record func(cmd renderer.CommandRecorder) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cb, err := AllocateAndBeginSingleUse(d)
	if err != nil {
		return err
	}
	if err := record(&commandRecorder{handle: cb.Handle}); err != nil {
		cb.Free(d, d.transientPool)
		return err
	}
	if err := ctx.Err(); err != nil {
		cb.Free(d, d.transientPool)
		return err
	}
	return cb.EndSingleUse(d)
}

// commandRecorder translates renderer.CommandRecorder calls into vkCmd* calls.
type commandRecorder struct {
	handle vk.CommandBuffer
}

// NewCommandRecorder wraps a command buffer that is already recording.
func NewCommandRecorder(cb *VulkanCommandBuffer) renderer.CommandRecorder {
	return &commandRecorder{handle: cb.Handle}
}

func (r *commandRecorder) CopyBuffer(src, dst *metadata.Buffer, size uint64) {
	region := vk.BufferCopy{Size: vk.DeviceSize(size)}
	vk.CmdCopyBuffer(r.handle, src.InternalData.(*vulkanBuffer).Handle, dst.InternalData.(*vulkanBuffer).Handle, 1, []vk.BufferCopy{region})
}

func (r *commandRecorder) BindVertexBuffer(buffer *metadata.Buffer, offset uint64) {
	b := buffer.InternalData.(*vulkanBuffer)
	vk.CmdBindVertexBuffers(r.handle, 0, 1, []vk.Buffer{b.Handle}, []vk.DeviceSize{vk.DeviceSize(offset)})
}

func (r *commandRecorder) BindIndexBuffer(buffer *metadata.Buffer, offset uint64, indexType vk.IndexType) {
	b := buffer.InternalData.(*vulkanBuffer)
	vk.CmdBindIndexBuffer(r.handle, b.Handle, vk.DeviceSize(offset), indexType)
}

func (r *commandRecorder) PushConstants(layout *metadata.PipelineLayout, stages vk.ShaderStageFlags, offset uint32, data []byte) {
	if len(data) == 0 {
		return
	}
	vk.CmdPushConstants(r.handle, layout.InternalData.(vk.PipelineLayout), stages, offset, uint32(len(data)), unsafe.Pointer(&data[0]))
}

func (r *commandRecorder) BindDescriptorSet(layout *metadata.PipelineLayout, set *metadata.DescriptorSet) {
	vk.CmdBindDescriptorSets(r.handle, vk.PipelineBindPointGraphics, layout.InternalData.(vk.PipelineLayout),
		0, 1, []vk.DescriptorSet{set.InternalData.(vk.DescriptorSet)}, 0, nil)
}

func (r *commandRecorder) DrawIndexed(indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) {
	vk.CmdDrawIndexed(r.handle, indexCount, instanceCount, firstIndex, vertexOffset, firstInstance)
}
