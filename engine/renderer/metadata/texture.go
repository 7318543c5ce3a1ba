package metadata

import vk "github.com/goki/vulkan"

type TextureType int

const (
	TextureType2d TextureType = iota
	TextureTypeCube
)

/**
 * @brief A sampled image living on the device. The image, view, sampler and
 * memory sit behind InternalData and are released by the device that
 * created them.
 */
type Texture struct {
	ID          uint64
	Name        string
	TextureType TextureType
	Width       uint32
	Height      uint32

	/** @brief Always 4: uploads are expanded to RGBA first. */
	ChannelCount uint8
	Format       vk.Format
	InternalData interface{}
}

// Size returns the number of bytes a full upload of the texture carries.
func (t *Texture) Size() uint64 {
	return uint64(t.Width) * uint64(t.Height) * uint64(t.ChannelCount)
}
