package vulkan

import (
	"context"
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkexamples/engine/core"
	"github.com/spaghettifunk/vkexamples/engine/renderer"
	"github.com/spaghettifunk/vkexamples/engine/renderer/metadata"
)

type VulkanImage struct {
	Handle  vk.Image
	Memory  vk.DeviceMemory
	View    vk.ImageView
	Sampler vk.Sampler
	Width   uint32
	Height  uint32
}

// CreateTextureFromPixels uploads RGBA pixels into a sampled, device local image.
func (d *Device) CreateTextureFromPixels(pixels []byte, format vk.Format, width, height uint32) (*metadata.Texture, error) {
	if want := int(width) * int(height) * 4; len(pixels) != want {
		return nil, &core.ResourceCreationError{Resource: "texture", Err: fmt.Errorf("expected %d bytes of pixels, got %d", want, len(pixels))}
	}

	staging, err := d.CreateBuffer(
		vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit),
		uint64(len(pixels)), pixels)
	if err != nil {
		return nil, err
	}
	defer d.DestroyBuffer(staging)

	img, err := d.createImage(width, height, format,
		vk.ImageUsageFlags(vk.ImageUsageTransferDstBit|vk.ImageUsageSampledBit))
	if err != nil {
		return nil, err
	}

	err = d.SubmitOneShot(context.Background(), func(cmd renderer.CommandRecorder) error {
		handle := cmd.(*commandRecorder).handle
		if err := transitionImageLayout(handle, img.Handle, vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal); err != nil {
			return err
		}
		copyBufferToImage(handle, staging.InternalData.(*vulkanBuffer).Handle, img.Handle, width, height)
		return transitionImageLayout(handle, img.Handle, vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutShaderReadOnlyOptimal)
	})
	if err != nil {
		d.destroyImage(img)
		return nil, err
	}

	if err := d.createImageView(img, format); err != nil {
		d.destroyImage(img)
		return nil, err
	}
	if err := d.createSampler(img); err != nil {
		d.destroyImage(img)
		return nil, err
	}

	return &metadata.Texture{
		ID:           d.id(),
		TextureType:  metadata.TextureType2d,
		Width:        width,
		Height:       height,
		ChannelCount: 4,
		Format:       format,
		InternalData: img,
	}, nil
}

func (d *Device) DestroyTexture(texture *metadata.Texture) {
	if texture == nil {
		return
	}
	if img, ok := texture.InternalData.(*VulkanImage); ok {
		d.destroyImage(img)
	}
	texture.InternalData = nil
}

func (d *Device) createImage(width, height uint32, format vk.Format, usage vk.ImageUsageFlags) (*VulkanImage, error) {
	imageInfo := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Format:    format,
		Extent: vk.Extent3D{
			Width:  width,
			Height: height,
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   1,
		Samples:       vk.SampleCount1Bit,
		Tiling:        vk.ImageTilingOptimal,
		Usage:         usage,
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}
	img := &VulkanImage{Width: width, Height: height}
	if res := vk.CreateImage(d.LogicalDevice, &imageInfo, d.Allocator, &img.Handle); res != vk.Success {
		return nil, resultError("image", res)
	}

	var memReq vk.MemoryRequirements
	vk.GetImageMemoryRequirements(d.LogicalDevice, img.Handle, &memReq)
	memReq.Deref()

	index, err := d.FindMemoryIndex(memReq.MemoryTypeBits, uint32(vk.MemoryPropertyDeviceLocalBit))
	if err != nil {
		d.destroyImage(img)
		return nil, err
	}
	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memReq.Size,
		MemoryTypeIndex: index,
	}
	if res := vk.AllocateMemory(d.LogicalDevice, &allocInfo, d.Allocator, &img.Memory); res != vk.Success {
		d.destroyImage(img)
		return nil, resultError("image memory", res)
	}
	if res := vk.BindImageMemory(d.LogicalDevice, img.Handle, img.Memory, 0); res != vk.Success {
		d.destroyImage(img)
		return nil, resultError("image memory binding", res)
	}
	return img, nil
}

func (d *Device) createImageView(img *VulkanImage, format vk.Format) error {
	viewInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    img.Handle,
		ViewType: vk.ImageViewType2d,
		Format:   format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			LevelCount: 1,
			LayerCount: 1,
		},
	}
	if res := vk.CreateImageView(d.LogicalDevice, &viewInfo, d.Allocator, &img.View); res != vk.Success {
		return resultError("image view", res)
	}
	return nil
}

func (d *Device) createSampler(img *VulkanImage) error {
	samplerInfo := vk.SamplerCreateInfo{
		SType:                   vk.StructureTypeSamplerCreateInfo,
		MagFilter:               vk.FilterLinear,
		MinFilter:               vk.FilterLinear,
		MipmapMode:              vk.SamplerMipmapModeLinear,
		AddressModeU:            vk.SamplerAddressModeRepeat,
		AddressModeV:            vk.SamplerAddressModeRepeat,
		AddressModeW:            vk.SamplerAddressModeRepeat,
		AnisotropyEnable:        vk.False,
		MaxAnisotropy:           1,
		CompareEnable:           vk.False,
		CompareOp:               vk.CompareOpAlways,
		BorderColor:             vk.BorderColorIntOpaqueBlack,
		UnnormalizedCoordinates: vk.False,
	}
	if res := vk.CreateSampler(d.LogicalDevice, &samplerInfo, d.Allocator, &img.Sampler); res != vk.Success {
		return resultError("sampler", res)
	}
	return nil
}

func (d *Device) destroyImage(img *VulkanImage) {
	if img.Sampler != nil {
		vk.DestroySampler(d.LogicalDevice, img.Sampler, d.Allocator)
		img.Sampler = nil
	}
	if img.View != nil {
		vk.DestroyImageView(d.LogicalDevice, img.View, d.Allocator)
		img.View = nil
	}
	if img.Handle != nil {
		vk.DestroyImage(d.LogicalDevice, img.Handle, d.Allocator)
		img.Handle = nil
	}
	if img.Memory != nil {
		vk.FreeMemory(d.LogicalDevice, img.Memory, d.Allocator)
		img.Memory = nil
	}
}

type layoutTransition struct {
	srcAccess, dstAccess vk.AccessFlags
	srcStage, dstStage   vk.PipelineStageFlags
}

func transitionFor(oldLayout, newLayout vk.ImageLayout) (layoutTransition, error) {
	switch {
	case oldLayout == vk.ImageLayoutUndefined && newLayout == vk.ImageLayoutTransferDstOptimal:
		return layoutTransition{
			dstAccess: vk.AccessFlags(vk.AccessTransferWriteBit),
			srcStage:  vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit),
			dstStage:  vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		}, nil
	case oldLayout == vk.ImageLayoutTransferDstOptimal && newLayout == vk.ImageLayoutShaderReadOnlyOptimal:
		return layoutTransition{
			srcAccess: vk.AccessFlags(vk.AccessTransferWriteBit),
			dstAccess: vk.AccessFlags(vk.AccessShaderReadBit),
			srcStage:  vk.PipelineStageFlags(vk.PipelineStageTransferBit),
			dstStage:  vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
		}, nil
	}
	return layoutTransition{}, &core.UnsupportedFormatError{What: "image layout transition", Value: fmt.Sprintf("%d -> %d", oldLayout, newLayout)}
}

func transitionImageLayout(cmd vk.CommandBuffer, img vk.Image, oldLayout, newLayout vk.ImageLayout) error {
	t, err := transitionFor(oldLayout, newLayout)
	if err != nil {
		return err
	}
	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		SrcAccessMask:       t.srcAccess,
		DstAccessMask:       t.dstAccess,
		OldLayout:           oldLayout,
		NewLayout:           newLayout,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               img,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			LevelCount: 1,
			LayerCount: 1,
		},
	}
	vk.CmdPipelineBarrier(cmd, t.srcStage, t.dstStage, 0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{barrier})
	return nil
}

func copyBufferToImage(cmd vk.CommandBuffer, buffer vk.Buffer, img vk.Image, width, height uint32) {
	region := vk.BufferImageCopy{
		ImageSubresource: vk.ImageSubresourceLayers{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			LayerCount: 1,
		},
		ImageExtent: vk.Extent3D{
			Width:  width,
			Height: height,
			Depth:  1,
		},
	}
	vk.CmdCopyBufferToImage(cmd, buffer, img, vk.ImageLayoutTransferDstOptimal, 1, []vk.BufferImageCopy{region})
}
