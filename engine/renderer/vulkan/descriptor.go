package vulkan

import (
	"errors"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkexamples/engine/core"
	"github.com/spaghettifunk/vkexamples/engine/math"
	"github.com/spaghettifunk/vkexamples/engine/renderer/metadata"
)

/**
 * @brief A descriptor pool sized for combined image samplers and uniform
 * buffers. Sets may be freed individually so models can be reloaded
 * without exhausting the pool.
 */
type VulkanDescriptorPool struct {
	Handle  vk.DescriptorPool
	MaxSets uint32
	/** @brief The number of sets currently allocated. */
	Allocated uint32
}

func NewDescriptorPool(device *Device, maxSets uint32) (*VulkanDescriptorPool, error) {
	poolSizes := []vk.DescriptorPoolSize{
		{Type: vk.DescriptorTypeCombinedImageSampler, DescriptorCount: maxSets},
		{Type: vk.DescriptorTypeUniformBuffer, DescriptorCount: maxSets},
	}
	poolInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		Flags:         vk.DescriptorPoolCreateFlags(vk.DescriptorPoolCreateFreeDescriptorSetBit),
		MaxSets:       maxSets,
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
	}
	var handle vk.DescriptorPool
	if res := vk.CreateDescriptorPool(device.LogicalDevice, &poolInfo, device.Allocator, &handle); res != vk.Success {
		return nil, resultError("descriptor pool", res)
	}
	return &VulkanDescriptorPool{Handle: handle, MaxSets: maxSets}, nil
}

func (p *VulkanDescriptorPool) Destroy(device *Device) {
	if p.Handle != nil {
		vk.DestroyDescriptorPool(device.LogicalDevice, p.Handle, device.Allocator)
		p.Handle = nil
	}
}

// CreateDescriptorSetLayout builds a layout from bindings, typically the
// Bindings of a graph.RenderPassDescription.
func (d *Device) CreateDescriptorSetLayout(name string, bindings []vk.DescriptorSetLayoutBinding) (*metadata.DescriptorSetLayout, error) {
	layoutInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}
	var handle vk.DescriptorSetLayout
	if res := vk.CreateDescriptorSetLayout(d.LogicalDevice, &layoutInfo, d.Allocator, &handle); res != vk.Success {
		return nil, resultError("descriptor set layout", res)
	}
	return &metadata.DescriptorSetLayout{Name: name, InternalData: handle}, nil
}

func (d *Device) DestroyDescriptorSetLayout(layout *metadata.DescriptorSetLayout) {
	if handle, ok := layout.InternalData.(vk.DescriptorSetLayout); ok && handle != nil {
		vk.DestroyDescriptorSetLayout(d.LogicalDevice, handle, d.Allocator)
	}
	layout.InternalData = nil
}

// CreatePipelineLayout creates a layout with the given set layouts and a
// single push constant range holding one model matrix for the vertex stage.
func (d *Device) CreatePipelineLayout(name string, setLayouts ...*metadata.DescriptorSetLayout) (*metadata.PipelineLayout, error) {
	handles := make([]vk.DescriptorSetLayout, 0, len(setLayouts))
	for _, l := range setLayouts {
		handles = append(handles, l.InternalData.(vk.DescriptorSetLayout))
	}
	pushConstant := vk.PushConstantRange{
		StageFlags: vk.ShaderStageFlags(vk.ShaderStageVertexBit),
		Offset:     0,
		Size:       math.Mat4Size,
	}
	layoutInfo := vk.PipelineLayoutCreateInfo{
		SType:                  vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount:         uint32(len(handles)),
		PSetLayouts:            handles,
		PushConstantRangeCount: 1,
		PPushConstantRanges:    []vk.PushConstantRange{pushConstant},
	}
	var handle vk.PipelineLayout
	if res := vk.CreatePipelineLayout(d.LogicalDevice, &layoutInfo, d.Allocator, &handle); res != vk.Success {
		return nil, resultError("pipeline layout", res)
	}
	return &metadata.PipelineLayout{Name: name, InternalData: handle}, nil
}

func (d *Device) DestroyPipelineLayout(layout *metadata.PipelineLayout) {
	if handle, ok := layout.InternalData.(vk.PipelineLayout); ok && handle != nil {
		vk.DestroyPipelineLayout(d.LogicalDevice, handle, d.Allocator)
	}
	layout.InternalData = nil
}

// CreateDescriptorSet allocates a set against layout and writes texture as
// the combined image sampler of binding 0.
func (d *Device) CreateDescriptorSet(layout *metadata.DescriptorSetLayout, texture *metadata.Texture) (*metadata.DescriptorSet, error) {
	if layout == nil || texture == nil {
		return nil, &core.ResourceCreationError{Resource: "descriptor set", Err: errors.New("layout and texture are required")}
	}
	img, ok := texture.InternalData.(*VulkanImage)
	if !ok || img.View == nil {
		return nil, &core.ResourceCreationError{Resource: "descriptor set", Err: errors.New("texture is not alive")}
	}
	layoutHandle, ok := layout.InternalData.(vk.DescriptorSetLayout)
	if !ok {
		return nil, &core.ResourceCreationError{Resource: "descriptor set", Err: errors.New("descriptor set layout is not alive")}
	}

	var set vk.DescriptorSet
	err := d.locks.SafeCall(DescriptorManagement, func() error {
		if d.descriptorPool.Allocated >= d.descriptorPool.MaxSets {
			return &core.ResourceCreationError{Resource: "descriptor set", Result: VulkanResultString(vk.ErrorOutOfPoolMemory, false)}
		}
		allocInfo := vk.DescriptorSetAllocateInfo{
			SType:              vk.StructureTypeDescriptorSetAllocateInfo,
			DescriptorPool:     d.descriptorPool.Handle,
			DescriptorSetCount: 1,
			PSetLayouts:        []vk.DescriptorSetLayout{layoutHandle},
		}
		if res := vk.AllocateDescriptorSets(d.LogicalDevice, &allocInfo, &set); res != vk.Success {
			return resultError("descriptor set", res)
		}
		d.descriptorPool.Allocated++
		return nil
	})
	if err != nil {
		return nil, err
	}

	imageInfo := vk.DescriptorImageInfo{
		Sampler:     img.Sampler,
		ImageView:   img.View,
		ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
	}
	write := vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          set,
		DstBinding:      0,
		DstArrayElement: 0,
		DescriptorCount: 1,
		DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
		PImageInfo:      []vk.DescriptorImageInfo{imageInfo},
	}
	vk.UpdateDescriptorSets(d.LogicalDevice, 1, []vk.WriteDescriptorSet{write}, 0, nil)

	return &metadata.DescriptorSet{ID: d.id(), InternalData: set}, nil
}

func (d *Device) DestroyDescriptorSet(set *metadata.DescriptorSet) {
	if set == nil {
		return
	}
	handle, ok := set.InternalData.(vk.DescriptorSet)
	if !ok || handle == nil || d.descriptorPool == nil {
		return
	}
	_ = d.locks.SafeCall(DescriptorManagement, func() error {
		if res := vk.FreeDescriptorSets(d.LogicalDevice, d.descriptorPool.Handle, 1, &handle); res != vk.Success {
			core.LogWarn("failed to free descriptor set %d: %s", set.ID, VulkanResultString(res, true))
			return nil
		}
		if d.descriptorPool.Allocated > 0 {
			d.descriptorPool.Allocated--
		}
		return nil
	})
	set.InternalData = nil
}
