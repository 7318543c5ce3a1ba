package metadata

import vk "github.com/goki/vulkan"

type RenderBufferType int

const (
	/** @brief Buffer is use is unknown. Default, but usually invalid. */
	RENDERBUFFER_TYPE_UNKNOWN RenderBufferType = iota
	/** @brief Buffer is used for vertex data. */
	RENDERBUFFER_TYPE_VERTEX
	/** @brief Buffer is used for index data. */
	RENDERBUFFER_TYPE_INDEX
	/** @brief Buffer is used for uniform data. */
	RENDERBUFFER_TYPE_UNIFORM
	/** @brief Buffer is used for staging purposes (i.e. from host-visible to device-local memory) */
	RENDERBUFFER_TYPE_STAGING
	/** @brief Buffer is used for data storage. */
	RENDERBUFFER_TYPE_STORAGE
)

// BufferTypeFromUsage guesses the buffer role from its usage flags.
func BufferTypeFromUsage(usage vk.BufferUsageFlags) RenderBufferType {
	switch {
	case usage&vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit) != 0:
		return RENDERBUFFER_TYPE_VERTEX
	case usage&vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit) != 0:
		return RENDERBUFFER_TYPE_INDEX
	case usage&vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit) != 0:
		return RENDERBUFFER_TYPE_UNIFORM
	case usage&vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit) != 0:
		return RENDERBUFFER_TYPE_STORAGE
	case usage&vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit) != 0:
		return RENDERBUFFER_TYPE_STAGING
	default:
		return RENDERBUFFER_TYPE_UNKNOWN
	}
}

/**
 * @brief A device buffer and the memory bound to it.
 */
type Buffer struct {
	/** @brief The unique buffer identifier. */
	ID uint64
	/** @brief The type of buffer, which typically determines its use. */
	RenderBufferType RenderBufferType
	/** @brief The usage flags the buffer was created with. */
	Usage vk.BufferUsageFlags
	/** @brief The memory properties of the backing allocation. */
	Properties vk.MemoryPropertyFlags
	/** @brief The total size of the buffer in bytes. */
	TotalSize uint64
	/** @brief Contains internal data for the renderer-API-specific buffer. */
	InternalData interface{}
}
