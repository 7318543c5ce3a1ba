package assets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/vkexamples/engine/assets/loaders"
	"github.com/spaghettifunk/vkexamples/engine/core"
	"github.com/spaghettifunk/vkexamples/engine/renderer/metadata"
)

var (
	ErrClosed        = errors.New("asset manager already closed")
	ErrAssetNotFound = errors.New("asset not found")
	ErrNoLoader      = errors.New("no loader registered")
)

// changeBuffer is how many change notifications are kept for a slow consumer
// before new ones are dropped.
const changeBuffer = 64

type AssetInfo struct {
	// Path relative to the asset root, slash separated.
	Path       string
	Type       metadata.ResourceType
	LastLoaded time.Time
}

// AssetChange is sent on Changes whenever a watched asset is created,
// written, removed or renamed.
type AssetChange struct {
	Path string
	Type metadata.ResourceType
	Op   fsnotify.Op
}

type AssetManager struct {
	root    string
	assets  map[string]AssetInfo
	loaders map[metadata.ResourceType]Loader

	mutex sync.RWMutex

	done      chan struct{}
	closeOnce sync.Once
	fsnotify  *fsnotify.Watcher
	watching  bool
	isClosed  bool
	changes   chan AssetChange
}

func NewAssetManager() *AssetManager {
	am := &AssetManager{
		assets:  make(map[string]AssetInfo),
		loaders: make(map[metadata.ResourceType]Loader),
		changes: make(chan AssetChange, changeBuffer),
		done:    make(chan struct{}),
	}
	am.registerLoader(metadata.ResourceTypeModel, &loaders.ModelLoader{})
	am.registerLoader(metadata.ResourceTypeImage, &loaders.ImageLoader{})
	am.registerLoader(metadata.ResourceTypeShader, &loaders.ShaderLoader{})
	am.registerLoader(metadata.ResourceTypeBinary, &loaders.BinaryLoader{})
	return am
}

// Initialize indexes every asset under assetsDir. With watch set, the
// directory tree is watched and changes are reported on Changes.
func (am *AssetManager) Initialize(assetsDir string, watch bool) error {
	if am.isClosed {
		return ErrClosed
	}
	root, err := filepath.Abs(assetsDir)
	if err != nil {
		return err
	}
	am.root = root

	if watch {
		w, err := fsnotify.NewWatcher()
		if err != nil {
			return err
		}
		am.fsnotify = w
		am.watching = true
	}
	if err := am.watchRecursive(root); err != nil {
		return err
	}
	if am.watching {
		go am.start()
	}

	core.LogInfo("asset manager indexed %d assets under %s (watch: %t)", am.Count(), root, watch)
	return nil
}

func (am *AssetManager) Root() string { return am.root }

// Changes delivers asset change notifications while watching.
// The channel is closed by Shutdown.
func (am *AssetManager) Changes() <-chan AssetChange {
	return am.changes
}

// Register loaders for each asset type
func (am *AssetManager) registerLoader(assetType metadata.ResourceType, loader Loader) {
	am.mutex.Lock()
	defer am.mutex.Unlock()
	am.loaders[assetType] = loader
}

// RegisterLoader replaces the loader used for assetType.
func (am *AssetManager) RegisterLoader(assetType metadata.ResourceType, loader Loader) {
	am.registerLoader(assetType, loader)
}

// Lookup returns the index entry of name, a path relative to the root.
func (am *AssetManager) Lookup(name string) (AssetInfo, bool) {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	asset, ok := am.assets[filepath.ToSlash(name)]
	return asset, ok
}

// Assets lists the indexed assets of one type, sorted by path.
func (am *AssetManager) Assets(resourceType metadata.ResourceType) []AssetInfo {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	var out []AssetInfo
	for _, a := range am.assets {
		if a.Type == resourceType {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

func (am *AssetManager) Count() int {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	return len(am.assets)
}

// FullPath resolves name against the asset root.
func (am *AssetManager) FullPath(name string) string {
	return filepath.Join(am.root, filepath.FromSlash(name))
}

// LoadAsset loads name with the loader registered for resourceType.
func (am *AssetManager) LoadAsset(name string, resourceType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	key := filepath.ToSlash(name)

	am.mutex.Lock()
	asset, exists := am.assets[key]
	if exists {
		asset.LastLoaded = time.Now()
		am.assets[key] = asset
	}
	loader, loaderExists := am.loaders[resourceType]
	am.mutex.Unlock()

	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrAssetNotFound, key)
	}
	if asset.Type != resourceType {
		return nil, fmt.Errorf("asset %s is a %s, not a %s", key, asset.Type, resourceType)
	}
	if !loaderExists {
		return nil, fmt.Errorf("%w for asset type %s", ErrNoLoader, resourceType)
	}

	res, err := loader.Load(am.FullPath(key), resourceType, params)
	if err != nil {
		core.LogError("failed to load asset %s: %v", key, err)
		return nil, err
	}
	res.Name = key
	res.Type = resourceType
	core.LogDebug("loaded %s asset %s (%d bytes)", resourceType, key, res.DataSize)
	return res, nil
}

func (am *AssetManager) UnloadAsset(asset *metadata.Resource) error {
	if asset == nil {
		return nil
	}
	am.mutex.RLock()
	loader, ok := am.loaders[asset.Type]
	am.mutex.RUnlock()
	if !ok {
		return fmt.Errorf("%w for asset type %s", ErrNoLoader, asset.Type)
	}
	return loader.Unload(asset)
}

// Shutdown stops watching and closes the change channel.
func (am *AssetManager) Shutdown() error {
	am.closeOnce.Do(func() {
		am.isClosed = true
		close(am.done)
		if !am.watching {
			close(am.changes)
		}
	})
	return nil
}

func (am *AssetManager) start() {
	for {
		select {
		case e, ok := <-am.fsnotify.Events:
			if !ok {
				return
			}
			am.handleEvent(e)

		case err, ok := <-am.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("asset watcher: %v", err)

		case <-am.done:
			am.fsnotify.Close()
			close(am.changes)
			return
		}
	}
}

func (am *AssetManager) handleEvent(e fsnotify.Event) {
	if s, err := os.Stat(e.Name); err == nil && s.IsDir() {
		if e.Op&fsnotify.Create != 0 {
			if err := am.watchRecursive(e.Name); err != nil {
				core.LogWarn("failed to watch %s: %v", e.Name, err)
			}
		}
		return
	}

	rel, ok := am.relative(e.Name)
	if !ok {
		return
	}
	switch {
	case e.Op&(fsnotify.Create|fsnotify.Write) != 0:
		if t := am.handleFileEvent(rel); t != metadata.ResourceTypeNone {
			am.notify(AssetChange{Path: rel, Type: t, Op: e.Op})
		}
	case e.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		// Can't stat a deleted path, so the watch is dropped unconditionally.
		if t := am.removeAsset(rel); t != metadata.ResourceTypeNone {
			am.notify(AssetChange{Path: rel, Type: t, Op: e.Op})
		}
		_ = am.fsnotify.Remove(e.Name)
	}
}

func (am *AssetManager) notify(c AssetChange) {
	select {
	case am.changes <- c:
	default:
		core.LogWarn("asset change queue full, dropping %s event for %s", c.Op, c.Path)
	}
}

func (am *AssetManager) relative(path string) (string, bool) {
	rel, err := filepath.Rel(am.root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// watchRecursive indexes every file under path and, when watching, adds all
// directories to the watch list. Files created before the watch is added
// are still picked up by the walk.
func (am *AssetManager) watchRecursive(path string) error {
	return filepath.Walk(path, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			if am.watching {
				return am.fsnotify.Add(walkPath)
			}
			return nil
		}
		if rel, ok := am.relative(walkPath); ok {
			am.handleFileEvent(rel)
		}
		return nil
	})
}

// Handle the creation or modification of a file
func (am *AssetManager) handleFileEvent(path string) metadata.ResourceType {
	assetType := determineAssetType(path)
	if assetType == metadata.ResourceTypeNone {
		return assetType
	}

	am.mutex.Lock()
	defer am.mutex.Unlock()
	am.assets[path] = AssetInfo{
		Path: path,
		Type: assetType,
	}
	return assetType
}

// Remove the asset from the index if it was deleted
func (am *AssetManager) removeAsset(path string) metadata.ResourceType {
	am.mutex.Lock()
	defer am.mutex.Unlock()

	asset, ok := am.assets[path]
	if !ok {
		return metadata.ResourceTypeNone
	}
	delete(am.assets, path)
	return asset.Type
}

func determineAssetType(path string) metadata.ResourceType {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gltf", ".glb":
		return metadata.ResourceTypeModel
	case ".png", ".jpg", ".jpeg", ".webp", ".bmp":
		return metadata.ResourceTypeImage
	case ".spv":
		return metadata.ResourceTypeShader
	case ".bin":
		return metadata.ResourceTypeBinary
	default:
		return metadata.ResourceTypeNone
	}
}
