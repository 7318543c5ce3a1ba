package systems

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/vkexamples/engine/assets"
	"github.com/spaghettifunk/vkexamples/engine/containers"
	"github.com/spaghettifunk/vkexamples/engine/core"
	"github.com/spaghettifunk/vkexamples/engine/renderer"
	"github.com/spaghettifunk/vkexamples/engine/renderer/metadata"
	"github.com/spaghettifunk/vkexamples/engine/scene"
)

var ErrModelLimit = errors.New("model limit reached")

/** @brief The configuration for the model system */
type ModelSystemConfig struct {
	/** @brief The maximum number of models that can be loaded at once. */
	MaxModelCount uint32
	/** @brief The number of asset changes kept until the next Update. */
	MaxPendingReloads int
}

type modelReference struct {
	// asset path relative to the asset root
	asset   string
	options scene.Options
	model   *scene.Model
}

// ModelSystem owns the loaded scene models, keyed by name. Asset changes are
// queued from any goroutine and applied on the render thread by Update.
type ModelSystem struct {
	config ModelSystemConfig
	device renderer.GraphicsDevice
	assets *assets.AssetManager

	mu      sync.Mutex
	models  map[string]*modelReference
	pending *containers.RingQueue[assets.AssetChange]
}

func NewModelSystem(config ModelSystemConfig, device renderer.GraphicsDevice, am *assets.AssetManager) (*ModelSystem, error) {
	if config.MaxModelCount == 0 {
		err := fmt.Errorf("failed to create model system because config.MaxModelCount==0")
		core.LogError(err.Error())
		return nil, err
	}
	if config.MaxPendingReloads <= 0 {
		config.MaxPendingReloads = 16
	}
	return &ModelSystem{
		config:  config,
		device:  device,
		assets:  am,
		models:  make(map[string]*modelReference),
		pending: containers.NewRingQueue[assets.AssetChange](config.MaxPendingReloads),
	}, nil
}

// Acquire returns the model registered under name, loading assetPath on
// first use. Reloads reuse opts.
func (ms *ModelSystem) Acquire(ctx context.Context, name, assetPath string, opts scene.Options) (*scene.Model, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if ref, ok := ms.models[name]; ok {
		if ref.asset != assetPath {
			return nil, fmt.Errorf("model %s is already loaded from %s", name, ref.asset)
		}
		return ref.model, nil
	}
	if uint32(len(ms.models)) >= ms.config.MaxModelCount {
		return nil, fmt.Errorf("%w: %d", ErrModelLimit, ms.config.MaxModelCount)
	}

	model, err := ms.load(ctx, assetPath, opts)
	if err != nil {
		return nil, err
	}
	ms.models[name] = &modelReference{asset: assetPath, options: opts, model: model}
	core.LogInfo("model system: %s loaded from %s (%s)", name, assetPath, model.ID())
	return model, nil
}

func (ms *ModelSystem) load(ctx context.Context, assetPath string, opts scene.Options) (*scene.Model, error) {
	res, err := ms.assets.LoadAsset(assetPath, metadata.ResourceTypeModel, nil)
	if err != nil {
		return nil, err
	}
	defer ms.assets.UnloadAsset(res)

	doc, ok := res.Data.(*scene.Document)
	if !ok {
		return nil, &core.ParseError{Path: res.FullPath, Err: fmt.Errorf("unexpected resource data %T", res.Data)}
	}
	return scene.LoadDocument(ctx, ms.device, doc, filepath.Dir(res.FullPath), opts)
}

func (ms *ModelSystem) Get(name string) (*scene.Model, bool) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ref, ok := ms.models[name]
	if !ok {
		return nil, false
	}
	return ref.model, true
}

// Names returns the registered model names in sorted order.
func (ms *ModelSystem) Names() []string {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.names()
}

func (ms *ModelSystem) names() []string {
	names := make([]string, 0, len(ms.models))
	for name := range ms.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Release destroys the model registered under name.
func (ms *ModelSystem) Release(name string) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if ref, ok := ms.models[name]; ok {
		ref.model.Destroy()
		delete(ms.models, name)
	}
}

// OnAssetChanged queues a reload of every model that depends on the changed
// asset: the document itself or an image or buffer next to it.
func (ms *ModelSystem) OnAssetChanged(change assets.AssetChange) {
	if change.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if len(ms.dependents(change)) == 0 {
		return
	}
	if ms.pending.Contains(func(c assets.AssetChange) bool { return c.Path == change.Path }) {
		return
	}
	if err := ms.pending.Enqueue(change); err != nil {
		core.LogWarn("model system: dropping change of %s: %v", change.Path, err)
	}
}

func (ms *ModelSystem) dependents(change assets.AssetChange) []string {
	var out []string
	for _, name := range ms.names() {
		ref := ms.models[name]
		switch {
		case ref.asset == change.Path:
			out = append(out, name)
		case change.Type != metadata.ResourceTypeModel && path.Dir(ref.asset) == path.Dir(change.Path):
			out = append(out, name)
		}
	}
	return out
}

// Listen forwards asset changes to OnAssetChanged until the change channel
// is closed or ctx is done.
func (ms *ModelSystem) Listen(ctx context.Context) {
	changes := ms.assets.Changes()
	for {
		select {
		case c, ok := <-changes:
			if !ok {
				return
			}
			ms.OnAssetChanged(c)
		case <-ctx.Done():
			return
		}
	}
}

// Update applies the queued reloads. A model is replaced only once its new
// version loaded; on failure the old one stays and the error is returned.
func (ms *ModelSystem) Update(ctx context.Context) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	var errs []error
	reloaded := make(map[string]bool)
	for !ms.pending.IsEmpty() {
		change, _ := ms.pending.Dequeue()
		for _, name := range ms.dependents(change) {
			if reloaded[name] {
				continue
			}
			reloaded[name] = true
			if err := ms.reload(ctx, name); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (ms *ModelSystem) reload(ctx context.Context, name string) error {
	ref := ms.models[name]
	model, err := ms.load(ctx, ref.asset, ref.options)
	if err != nil {
		core.LogError("model system: reload of %s failed, keeping the previous version: %v", name, err)
		return fmt.Errorf("reload %s: %w", name, err)
	}
	old := ref.model
	ref.model = model
	old.Destroy()
	core.LogInfo("model system: %s reloaded (%s -> %s)", name, old.ID(), model.ID())
	return nil
}

// DrawAll draws every model in name order.
func (ms *ModelSystem) DrawAll(cmd renderer.CommandRecorder, layout *metadata.PipelineLayout) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	for _, name := range ms.names() {
		ms.models[name].model.Draw(cmd, layout)
	}
}

func (ms *ModelSystem) Shutdown() error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	for name, ref := range ms.models {
		ref.model.Destroy()
		delete(ms.models, name)
	}
	return nil
}
