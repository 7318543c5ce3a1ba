package vulkan

import (
	"sync/atomic"
	"time"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkexamples/engine/core"
	"github.com/spaghettifunk/vkexamples/engine/renderer"
)

// DeviceConfig carries the handles created by the device bootstrap. The
// Device borrows them and never destroys them.
type DeviceConfig struct {
	PhysicalDevice   vk.PhysicalDevice
	Device           vk.Device
	Queue            vk.Queue
	QueueFamilyIndex uint32
	Allocator        *vk.AllocationCallbacks

	// How long a one-shot submission may take. 0 means one second.
	FenceTimeout time.Duration
	// Capacity of the descriptor pool the texture sets come from. 0 means 256.
	MaxDescriptorSets uint32
}

// Device implements renderer.GraphicsDevice on top of a logical vulkan device.
type Device struct {
	PhysicalDevice   vk.PhysicalDevice
	LogicalDevice    vk.Device
	Queue            vk.Queue
	QueueFamilyIndex uint32
	Allocator        *vk.AllocationCallbacks

	// Property flags of every memory type, by index.
	memoryTypes []vk.MemoryPropertyFlags

	transientPool  vk.CommandPool
	descriptorPool *VulkanDescriptorPool
	locks          *VulkanLockPool
	fenceTimeout   time.Duration

	nextID atomic.Uint64
}

func (d *Device) id() uint64 { return d.nextID.Add(1) }

// FindMemoryIndex returns the first memory type allowed by typeFilter that
// has every bit of propertyFlags.
func (d *Device) FindMemoryIndex(typeFilter, propertyFlags uint32) (uint32, error) {
	index, ok := selectMemoryType(d.memoryTypes, typeFilter, vk.MemoryPropertyFlags(propertyFlags))
	if !ok {
		core.LogWarn("Unable to find suitable memory type!")
		return 0, &core.MemoryTypeNotFoundError{TypeFilter: typeFilter, Properties: propertyFlags}
	}
	return index, nil
}

func selectMemoryType(types []vk.MemoryPropertyFlags, typeFilter uint32, want vk.MemoryPropertyFlags) (uint32, bool) {
	for i, flags := range types {
		// Check each memory type to see if its bit is set to 1.
		if typeFilter&(1<<uint(i)) != 0 && flags&want == want {
			return uint32(i), true
		}
	}
	return 0, false
}

func resultError(resource string, res vk.Result) error {
	return &core.ResourceCreationError{
		Resource: resource,
		Result:   VulkanResultString(res, false),
		Err:      vk.Error(res),
	}
}

var (
	_ renderer.GraphicsDevice = (*Device)(nil)
	_ renderer.LayoutDevice   = (*Device)(nil)
)
