package assets

import "github.com/spaghettifunk/vkexamples/engine/renderer/metadata"

type Loader interface {
	// Load reads the asset at path. params is loader specific and may be nil.
	Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error)
	Unload(*metadata.Resource) error
}
