package loaders

import (
	"fmt"
	"os"

	"github.com/spaghettifunk/vkexamples/engine/renderer/metadata"
	"github.com/spaghettifunk/vkexamples/engine/scene"
)

// ModelLoader parses .gltf and .glb scene documents. External buffers and
// images are resolved relative to the document, the loaded resource holds
// a *scene.Document.
type ModelLoader struct{}

func (ml *ModelLoader) Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	doc, err := scene.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse model %s: %w", path, err)
	}
	return &metadata.Resource{
		FullPath: path,
		Type:     metadata.ResourceTypeModel,
		DataSize: uint64(info.Size()),
		Data:     doc,
	}, nil
}

func (ml *ModelLoader) Unload(res *metadata.Resource) error {
	res.Data = nil
	return nil
}
