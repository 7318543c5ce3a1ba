package vulkan

import (
	"errors"
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkexamples/engine/core"
	"github.com/spaghettifunk/vkexamples/engine/renderer/metadata"
)

type vulkanBuffer struct {
	Handle vk.Buffer
	Memory vk.DeviceMemory
}

func (d *Device) CreateBuffer(usage vk.BufferUsageFlags, props vk.MemoryPropertyFlags, size uint64, data []byte) (*metadata.Buffer, error) {
	if size == 0 {
		return nil, &core.ResourceCreationError{Resource: "buffer", Err: errors.New("size must be greater than 0")}
	}
	if data != nil {
		if props&vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit) == 0 {
			return nil, &core.ResourceCreationError{Resource: "buffer", Err: errors.New("initial data requires host visible memory")}
		}
		if uint64(len(data)) > size {
			return nil, &core.ResourceCreationError{Resource: "buffer", Err: fmt.Errorf("%d bytes do not fit in %d", len(data), size)}
		}
	}

	bufferCreateInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}
	var handle vk.Buffer
	if res := vk.CreateBuffer(d.LogicalDevice, &bufferCreateInfo, d.Allocator, &handle); res != vk.Success {
		return nil, resultError("buffer", res)
	}

	memory, err := d.allocateBufferMemory(handle, props)
	if err != nil {
		vk.DestroyBuffer(d.LogicalDevice, handle, d.Allocator)
		return nil, err
	}

	vb := &vulkanBuffer{Handle: handle, Memory: memory}
	if data != nil {
		if err := d.writeMemory(memory, data); err != nil {
			d.destroyBuffer(vb)
			return nil, err
		}
	}

	return &metadata.Buffer{
		ID:               d.id(),
		RenderBufferType: metadata.BufferTypeFromUsage(usage),
		Usage:            usage,
		Properties:       props,
		TotalSize:        size,
		InternalData:     vb,
	}, nil
}

func (d *Device) allocateBufferMemory(handle vk.Buffer, props vk.MemoryPropertyFlags) (vk.DeviceMemory, error) {
	var memReq vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(d.LogicalDevice, handle, &memReq)
	memReq.Deref()

	index, err := d.FindMemoryIndex(memReq.MemoryTypeBits, uint32(props))
	if err != nil {
		return nil, err
	}
	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memReq.Size,
		MemoryTypeIndex: index,
	}
	var memory vk.DeviceMemory
	if res := vk.AllocateMemory(d.LogicalDevice, &allocInfo, d.Allocator, &memory); res != vk.Success {
		return nil, resultError("buffer memory", res)
	}
	if res := vk.BindBufferMemory(d.LogicalDevice, handle, memory, 0); res != vk.Success {
		vk.FreeMemory(d.LogicalDevice, memory, d.Allocator)
		return nil, resultError("buffer memory binding", res)
	}
	return memory, nil
}

// writeMemory copies data to the start of a host visible allocation.
func (d *Device) writeMemory(memory vk.DeviceMemory, data []byte) error {
	return d.locks.SafeCall(ResourceManagement, func() error {
		var pData unsafe.Pointer
		if res := vk.MapMemory(d.LogicalDevice, memory, 0, vk.DeviceSize(len(data)), 0, &pData); res != vk.Success {
			return resultError("memory mapping", res)
		}
		vk.Memcopy(pData, data)
		vk.UnmapMemory(d.LogicalDevice, memory)
		return nil
	})
}

func (d *Device) DestroyBuffer(buffer *metadata.Buffer) {
	if buffer == nil {
		return
	}
	if vb, ok := buffer.InternalData.(*vulkanBuffer); ok {
		d.destroyBuffer(vb)
	}
	buffer.InternalData = nil
}

func (d *Device) destroyBuffer(vb *vulkanBuffer) {
	if vb.Handle != nil {
		vk.DestroyBuffer(d.LogicalDevice, vb.Handle, d.Allocator)
		vb.Handle = nil
	}
	if vb.Memory != nil {
		vk.FreeMemory(d.LogicalDevice, vb.Memory, d.Allocator)
		vb.Memory = nil
	}
}
