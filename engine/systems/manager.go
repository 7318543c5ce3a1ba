package systems

import (
	"context"
	"sync"

	"github.com/spaghettifunk/vkexamples/engine/assets"
	"github.com/spaghettifunk/vkexamples/engine/renderer"
)

type SystemManager struct {
	AssetManager *assets.AssetManager
	ModelSystem  *ModelSystem

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewSystemManager(device renderer.GraphicsDevice, am *assets.AssetManager, config ModelSystemConfig) (*SystemManager, error) {
	ms, err := NewModelSystem(config, device, am)
	if err != nil {
		return nil, err
	}
	return &SystemManager{
		AssetManager: am,
		ModelSystem:  ms,
	}, nil
}

// Initialize starts forwarding asset changes to the model system.
func (sm *SystemManager) Initialize(ctx context.Context) error {
	ctx, sm.cancel = context.WithCancel(ctx)
	sm.wg.Add(1)
	go func() {
		defer sm.wg.Done()
		sm.ModelSystem.Listen(ctx)
	}()
	return nil
}

// Update runs once per frame on the render thread.
func (sm *SystemManager) Update(ctx context.Context) error {
	return sm.ModelSystem.Update(ctx)
}

func (sm *SystemManager) Shutdown() error {
	if sm.cancel != nil {
		sm.cancel()
	}
	sm.wg.Wait()
	if err := sm.ModelSystem.Shutdown(); err != nil {
		return err
	}
	return sm.AssetManager.Shutdown()
}
