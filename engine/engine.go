package engine

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/spaghettifunk/vkexamples/engine/core"
	"github.com/spaghettifunk/vkexamples/engine/renderer"
	"github.com/spaghettifunk/vkexamples/engine/systems"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
	// Engine released everything
	EngineStageShutdown
)

func (s Stage) String() string {
	switch s {
	case EngineStageInitializing:
		return "initializing"
	case EngineStageInitialized:
		return "initialized"
	case EngineStageRunning:
		return "running"
	case EngineStageShuttingDown:
		return "shutting down"
	case EngineStageShutdown:
		return "shutdown"
	default:
		return "uninitialized"
	}
}

var ErrWrongStage = errors.New("engine is in the wrong stage")

type Engine struct {
	config  *ApplicationConfig
	device  renderer.GraphicsDevice
	frames  FrameRecorder
	systems *systems.SystemManager
	example Example

	currentStage Stage
	isRunning    atomic.Bool
	clock        *core.Clock
	frameCount   uint64
}

func New(config *ApplicationConfig, device renderer.GraphicsDevice, frames FrameRecorder, sm *systems.SystemManager, example Example) (*Engine, error) {
	if config == nil || device == nil || frames == nil || sm == nil || example == nil {
		return nil, errors.New("engine needs a config, a device, a frame recorder, the systems and an example")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		config:       config,
		device:       device,
		frames:       frames,
		systems:      sm,
		example:      example,
		currentStage: EngineStageUninitialized,
		clock:        core.NewClock(),
	}, nil
}

func (e *Engine) Stage() Stage { return e.currentStage }

func (e *Engine) FrameCount() uint64 { return e.frameCount }

func (e *Engine) Initialize(ctx context.Context) error {
	if e.currentStage != EngineStageUninitialized {
		return fmt.Errorf("%w: initialize while %s", ErrWrongStage, e.currentStage)
	}
	e.currentStage = EngineStageInitializing

	if err := e.systems.Initialize(ctx); err != nil {
		return err
	}
	if err := e.example.Prepare(ctx, e.device); err != nil {
		core.LogError("example %s failed to prepare: %v", e.example.Name(), err)
		return err
	}

	e.currentStage = EngineStageInitialized
	core.LogInfo("%s: example %s prepared (%dx%d)", e.config.Name, e.example.Name(), e.config.Width, e.config.Height)
	return nil
}

// Run renders frames until Stop is called, ctx is done or the configured
// number of frames has been rendered.
func (e *Engine) Run(ctx context.Context) error {
	if e.currentStage != EngineStageInitialized {
		return fmt.Errorf("%w: run while %s", ErrWrongStage, e.currentStage)
	}
	e.currentStage = EngineStageRunning
	e.isRunning.Store(true)
	defer func() { e.currentStage = EngineStageInitialized }()

	e.clock.Start()
	defer e.clock.Stop()

	var targetFrameSeconds float64
	if e.config.TargetFPS > 0 {
		targetFrameSeconds = 1.0 / e.config.TargetFPS
	}

	for e.isRunning.Load() {
		if ctx.Err() != nil {
			break
		}
		if e.config.Frames > 0 && e.frameCount >= e.config.Frames {
			break
		}

		delta := e.clock.Tick()
		frameStartTime := time.Now()

		// Failed reloads keep the previous model, so they do not stop the loop.
		if err := e.systems.Update(ctx); err != nil {
			core.LogError("systems update: %v", err)
		}

		cmd, err := e.frames.BeginFrame(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			return err
		}
		if err := e.example.Render(cmd); err != nil {
			core.LogError("example %s render failed, shutting down: %v", e.example.Name(), err)
			return err
		}
		if err := e.frames.EndFrame(ctx); err != nil {
			return err
		}

		frameElapsedTime := time.Since(frameStartTime).Seconds()
		core.MetricsUpdate(frameElapsedTime)
		if remaining := targetFrameSeconds - frameElapsedTime; remaining > 0 {
			time.Sleep(time.Duration(remaining * float64(time.Second)))
		}

		e.frameCount++
		core.LogDebug("frame %d done in %.3f ms (delta %.3f s)", e.frameCount, frameElapsedTime*1000, delta)
	}

	core.LogInfo("%s: rendered %d frames (%.1f fps, %.3f ms average frame)",
		e.example.Name(), e.frameCount, core.MetricsFPS(), core.MetricsFrameTime())
	return nil
}

// Stop makes Run return after the current frame. It is safe to call from
// any goroutine.
func (e *Engine) Stop() {
	e.isRunning.Store(false)
}

// Shutdown destroys the example and the systems. Call it after Run returned.
func (e *Engine) Shutdown() error {
	if e.currentStage == EngineStageShutdown {
		return nil
	}
	e.currentStage = EngineStageShuttingDown
	e.example.Destroy()
	if err := e.systems.Shutdown(); err != nil {
		return err
	}
	e.currentStage = EngineStageShutdown
	core.LogInfo("%s: shutdown complete", e.config.Name)
	return nil
}
