package vulkan

import (
	"errors"
	"time"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkexamples/engine/core"
)

const (
	defaultFenceTimeout      = time.Second
	defaultMaxDescriptorSets = 256
)

// NewDevice wraps the bootstrap handles and creates the command and
// descriptor pools used for uploads.
func NewDevice(config DeviceConfig) (*Device, error) {
	if config.Device == nil || config.PhysicalDevice == nil || config.Queue == nil {
		return nil, &core.ResourceCreationError{Resource: "device", Err: errors.New("physical device, logical device and queue are required")}
	}
	if config.FenceTimeout == 0 {
		config.FenceTimeout = defaultFenceTimeout
	}
	if config.MaxDescriptorSets == 0 {
		config.MaxDescriptorSets = defaultMaxDescriptorSets
	}

	d := &Device{
		PhysicalDevice:   config.PhysicalDevice,
		LogicalDevice:    config.Device,
		Queue:            config.Queue,
		QueueFamilyIndex: config.QueueFamilyIndex,
		Allocator:        config.Allocator,
		locks:            NewVulkanLockPool(),
		fenceTimeout:     config.FenceTimeout,
	}
	d.locks.SetQueueFamily(config.QueueFamilyIndex)

	var memory vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(d.PhysicalDevice, &memory)
	memory.Deref()
	d.memoryTypes = make([]vk.MemoryPropertyFlags, memory.MemoryTypeCount)
	for i := range d.memoryTypes {
		memory.MemoryTypes[i].Deref()
		d.memoryTypes[i] = memory.MemoryTypes[i].PropertyFlags
	}

	poolInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: d.QueueFamilyIndex,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateTransientBit),
	}
	var pool vk.CommandPool
	if res := vk.CreateCommandPool(d.LogicalDevice, &poolInfo, d.Allocator, &pool); res != vk.Success {
		return nil, resultError("command pool", res)
	}
	d.transientPool = pool

	descriptorPool, err := NewDescriptorPool(d, config.MaxDescriptorSets)
	if err != nil {
		vk.DestroyCommandPool(d.LogicalDevice, d.transientPool, d.Allocator)
		return nil, err
	}
	d.descriptorPool = descriptorPool

	core.LogInfo("vulkan device ready (%d memory types, %d descriptor sets)", len(d.memoryTypes), config.MaxDescriptorSets)
	return d, nil
}

// Destroy releases the pools. Resources created through the device must be
// destroyed before.
func (d *Device) Destroy() {
	vk.DeviceWaitIdle(d.LogicalDevice)
	if d.descriptorPool != nil {
		d.descriptorPool.Destroy(d)
		d.descriptorPool = nil
	}
	if d.transientPool != nil {
		vk.DestroyCommandPool(d.LogicalDevice, d.transientPool, d.Allocator)
		d.transientPool = nil
	}
}
