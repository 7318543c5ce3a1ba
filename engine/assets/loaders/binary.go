package loaders

import (
	"fmt"
	"os"

	"github.com/spaghettifunk/vkexamples/engine/renderer/metadata"
)

type BinaryResourceParams struct {
	/** @brief Files larger than this are rejected. 0 means no limit. */
	MaxSize int64
}

// BinaryLoader hands out the raw bytes of a file, typically a glTF .bin buffer.
type BinaryLoader struct{}

func (bl *BinaryLoader) Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if p, ok := params.(*BinaryResourceParams); ok && p.MaxSize > 0 && info.Size() > p.MaxSize {
		return nil, fmt.Errorf("binary %s is %d bytes, limit is %d", path, info.Size(), p.MaxSize)
	}
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &metadata.Resource{
		FullPath: path,
		Type:     metadata.ResourceTypeBinary,
		DataSize: uint64(len(buf)),
		Data:     buf,
	}, nil
}

func (bl *BinaryLoader) Unload(res *metadata.Resource) error {
	res.Data = nil
	return nil
}
