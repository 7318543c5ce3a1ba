package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkexamples/engine/core"
)

type VulkanFramebuffer struct {
	Handle      vk.Framebuffer
	Attachments []vk.ImageView
	Renderpass  *VulkanRenderpass
}

// NewFramebuffer binds one image view per render pass output, in output order.
func NewFramebuffer(device *Device, renderpass *VulkanRenderpass, attachments []vk.ImageView) (*VulkanFramebuffer, error) {
	if len(attachments) != len(renderpass.ClearValues) {
		return nil, &core.ResourceCreationError{
			Resource: "framebuffer",
			Err:      fmt.Errorf("render pass %s has %d outputs, got %d views", renderpass.Name, len(renderpass.ClearValues), len(attachments)),
		}
	}
	outFramebuffer := &VulkanFramebuffer{
		Attachments: append([]vk.ImageView(nil), attachments...),
		Renderpass:  renderpass,
	}

	layers := renderpass.Layers
	if layers == 0 {
		layers = 1
	}
	framebufferCreateInfo := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      renderpass.Handle,
		AttachmentCount: uint32(len(outFramebuffer.Attachments)),
		PAttachments:    outFramebuffer.Attachments,
		Width:           renderpass.W,
		Height:          renderpass.H,
		Layers:          layers,
	}

	var pFramebuffer vk.Framebuffer
	if res := vk.CreateFramebuffer(device.LogicalDevice, &framebufferCreateInfo, device.Allocator, &pFramebuffer); res != vk.Success {
		err := resultError("framebuffer", res)
		core.LogError(err.Error())
		return nil, err
	}
	outFramebuffer.Handle = pFramebuffer
	return outFramebuffer, nil
}

func (vfb *VulkanFramebuffer) Destroy(device *Device) {
	if vfb.Handle != nil {
		vk.DestroyFramebuffer(device.LogicalDevice, vfb.Handle, device.Allocator)
	}
	vfb.Attachments = nil
	vfb.Handle = nil
	vfb.Renderpass = nil
}
