package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkexamples/engine/renderer/graph"
)

type VulkanRenderpass struct {
	Handle      vk.RenderPass
	Name        string
	W, H        uint32
	Layers      uint32
	ClearValues []vk.ClearValue
}

// renderPassCreateInfo builds a single subpass render pass out of desc.
func renderPassCreateInfo(desc *graph.RenderPassDescription) vk.RenderPassCreateInfo {
	attachments := make([]vk.AttachmentDescription, 0, len(desc.Outputs))
	for _, out := range desc.Outputs {
		attachments = append(attachments, out.Description)
	}

	subpass := vk.SubpassDescription{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: uint32(len(desc.ColorReferences)),
		PColorAttachments:    desc.ColorReferences,
	}
	dstStage := vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)
	dstAccess := vk.AccessFlags(vk.AccessColorAttachmentReadBit | vk.AccessColorAttachmentWriteBit)
	if desc.DepthReference != nil {
		subpass.PDepthStencilAttachment = desc.DepthReference
		dstStage |= vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit)
		dstAccess |= vk.AccessFlags(vk.AccessDepthStencilAttachmentReadBit | vk.AccessDepthStencilAttachmentWriteBit)
	}

	dependency := vk.SubpassDependency{
		SrcSubpass:    vk.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  dstStage,
		SrcAccessMask: 0,
		DstStageMask:  dstStage,
		DstAccessMask: dstAccess,
	}

	return vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: 1,
		PDependencies:   []vk.SubpassDependency{dependency},
	}
}

// CreateRenderpass creates the render pass described by a pipeline declaration.
func (d *Device) CreateRenderpass(desc *graph.RenderPassDescription) (*VulkanRenderpass, error) {
	info := renderPassCreateInfo(desc)

	var pRenderPass vk.RenderPass
	if res := vk.CreateRenderPass(d.LogicalDevice, &info, d.Allocator, &pRenderPass); res != vk.Success {
		return nil, resultError("render pass "+desc.Name, res)
	}
	return &VulkanRenderpass{
		Handle:      pRenderPass,
		Name:        desc.Name,
		W:           desc.Width,
		H:           desc.Height,
		Layers:      desc.Layers,
		ClearValues: desc.ClearValues,
	}, nil
}

func (vr *VulkanRenderpass) Destroy(device *Device) {
	if vr.Handle != nil {
		vk.DestroyRenderPass(device.LogicalDevice, vr.Handle, device.Allocator)
		vr.Handle = nil
	}
}

func (vr *VulkanRenderpass) Begin(commandBuffer *VulkanCommandBuffer, frameBuffer *VulkanFramebuffer) {
	beginInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  vr.Handle,
		Framebuffer: frameBuffer.Handle,
		RenderArea: vk.Rect2D{
			Extent: vk.Extent2D{
				Width:  vr.W,
				Height: vr.H,
			},
		},
		ClearValueCount: uint32(len(vr.ClearValues)),
		PClearValues:    vr.ClearValues,
	}

	vk.CmdBeginRenderPass(commandBuffer.Handle, &beginInfo, vk.SubpassContentsInline)
	commandBuffer.State = COMMAND_BUFFER_STATE_IN_RENDER_PASS
}

func (vr *VulkanRenderpass) End(commandBuffer *VulkanCommandBuffer) {
	vk.CmdEndRenderPass(commandBuffer.Handle)
	commandBuffer.State = COMMAND_BUFFER_STATE_RECORDING
}
