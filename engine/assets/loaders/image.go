package loaders

import (
	"os"

	"github.com/spaghettifunk/vkexamples/engine/renderer/metadata"
	"github.com/spaghettifunk/vkexamples/engine/scene"
)

type ImageResourceParams struct {
	/** @brief Flip the rows so the first row is the bottom of the image. */
	FlipY bool
}

// ImageLoader decodes png, jpeg, webp and bmp files into 4 channel pixels.
type ImageLoader struct{}

func (il *ImageLoader) Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	img, err := scene.DecodePixels(raw)
	if err != nil {
		return nil, err
	}
	if img.ChannelCount == 3 {
		img.Pixels = scene.ExpandRGBToRGBA(img.Pixels, img.Width, img.Height)
		img.ChannelCount = 4
	}
	if p, ok := params.(*ImageResourceParams); ok && p.FlipY {
		img.FlipY()
	}

	return &metadata.Resource{
		FullPath: path,
		Type:     metadata.ResourceTypeImage,
		DataSize: uint64(len(img.Pixels)),
		Data:     img,
	}, nil
}

func (il *ImageLoader) Unload(res *metadata.Resource) error {
	res.Data = nil
	return nil
}
