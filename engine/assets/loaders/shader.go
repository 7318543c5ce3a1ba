package loaders

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/spaghettifunk/vkexamples/engine/core"
	"github.com/spaghettifunk/vkexamples/engine/renderer/metadata"
)

const spirvMagic uint32 = 0x07230203

// ShaderLoader reads compiled SPIR-V. The resource holds the raw bytes, which
// is what vk.ShaderModuleCreateInfo expects.
type ShaderLoader struct{}

func (sl *ShaderLoader) Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) < 4 || len(data)%4 != 0 {
		return nil, &core.UnsupportedFormatError{What: "SPIR-V length", Value: len(data)}
	}
	if magic := binary.LittleEndian.Uint32(data); magic != spirvMagic {
		return nil, &core.UnsupportedFormatError{What: "SPIR-V magic", Value: fmt.Sprintf("%#x", magic)}
	}
	return &metadata.Resource{
		FullPath: path,
		Type:     metadata.ResourceTypeShader,
		DataSize: uint64(len(data)),
		Data:     data,
	}, nil
}

func (sl *ShaderLoader) Unload(res *metadata.Resource) error {
	res.Data = nil
	return nil
}
