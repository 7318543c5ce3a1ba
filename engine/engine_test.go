package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spaghettifunk/vkexamples/engine/assets"
	"github.com/spaghettifunk/vkexamples/engine/renderer"
	"github.com/spaghettifunk/vkexamples/engine/renderer/headless"
	"github.com/spaghettifunk/vkexamples/engine/systems"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingExample struct {
	prepared  bool
	rendered  int
	destroyed bool
	onRender  func(n int) error
}

func (c *countingExample) Name() string { return "counting" }

func (c *countingExample) Prepare(ctx context.Context, device renderer.GraphicsDevice) error {
	c.prepared = true
	return nil
}

func (c *countingExample) Render(cmd renderer.CommandRecorder) error {
	c.rendered++
	cmd.DrawIndexed(3, 1, 0, 0, 0)
	if c.onRender != nil {
		return c.onRender(c.rendered)
	}
	return nil
}

func (c *countingExample) Destroy() { c.destroyed = true }

func newTestEngine(t *testing.T, frames uint64, example Example) (*Engine, *headless.Frames) {
	t.Helper()
	config := DefaultApplicationConfig()
	config.Frames = frames
	config.TargetFPS = 0

	device := headless.NewDevice()
	sm, err := systems.NewSystemManager(device, assets.NewAssetManager(), systems.ModelSystemConfig{MaxModelCount: 1})
	require.NoError(t, err)
	recorder := headless.NewFrames()
	e, err := New(config, device, recorder, sm, example)
	require.NoError(t, err)
	return e, recorder
}

func TestRunRendersConfiguredFrames(t *testing.T) {
	example := &countingExample{}
	e, frames := newTestEngine(t, 3, example)
	ctx := context.Background()

	require.NoError(t, e.Initialize(ctx))
	assert.True(t, example.prepared)
	assert.ErrorIs(t, e.Initialize(ctx), ErrWrongStage)

	require.NoError(t, e.Run(ctx))
	assert.Equal(t, 3, example.rendered)
	assert.Equal(t, uint64(3), frames.Count())
	assert.Equal(t, uint64(3), e.FrameCount())
	assert.Len(t, frames.Last().Draws(), 1)

	require.NoError(t, e.Shutdown())
	assert.True(t, example.destroyed)
	assert.Equal(t, EngineStageShutdown, e.Stage())
	require.NoError(t, e.Shutdown())
}

func TestStopEndsRun(t *testing.T) {
	example := &countingExample{}
	e, _ := newTestEngine(t, 0, example)
	example.onRender = func(n int) error {
		if n == 2 {
			e.Stop()
		}
		return nil
	}
	ctx := context.Background()
	require.NoError(t, e.Initialize(ctx))
	require.NoError(t, e.Run(ctx))
	assert.Equal(t, 2, example.rendered)
	require.NoError(t, e.Shutdown())
}

func TestRenderErrorStopsRun(t *testing.T) {
	boom := errors.New("boom")
	example := &countingExample{onRender: func(int) error { return boom }}
	e, _ := newTestEngine(t, 10, example)
	ctx := context.Background()
	require.NoError(t, e.Initialize(ctx))
	assert.ErrorIs(t, e.Run(ctx), boom)
	assert.Equal(t, 1, example.rendered)
	require.NoError(t, e.Shutdown())
}

func TestRunRequiresInitialize(t *testing.T) {
	e, _ := newTestEngine(t, 1, &countingExample{})
	assert.ErrorIs(t, e.Run(context.Background()), ErrWrongStage)
}

func TestCancelledRunRendersNothing(t *testing.T) {
	example := &countingExample{}
	e, _ := newTestEngine(t, 0, example)
	require.NoError(t, e.Initialize(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, e.Run(ctx))
	assert.Zero(t, example.rendered)
	require.NoError(t, e.Shutdown())
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
name = "test"
example = "triangle"
width = 640
clear_color = [1.0, 0.0, 0.0, 1.0]
watch_assets = true
`), 0o644))

	config, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "test", config.Name)
	assert.Equal(t, "triangle", config.Example)
	assert.Equal(t, uint32(640), config.Width)
	assert.Equal(t, uint32(720), config.Height)
	assert.Equal(t, [4]float32{1, 0, 0, 1}, config.ClearColor)
	assert.True(t, config.WatchAssets)
	assert.Equal(t, "info", config.LogLevel)
	assert.Equal(t, int64(1000), config.FenceTimeout().Milliseconds())
}

func TestLoadConfigErrors(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
		return path
	}

	_, err := LoadConfig(write("unknown.toml", `colour = "red"`))
	assert.Error(t, err)

	_, err = LoadConfig(write("size.toml", `width = 0`))
	assert.Error(t, err)

	_, err = LoadConfig(write("level.toml", `log_level = "loud"`))
	assert.Error(t, err)

	_, err = LoadConfig(write("syntax.toml", `width = `))
	assert.Error(t, err)

	_, err = LoadConfig(filepath.Join(dir, "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestNewRejectsMissingCollaborators(t *testing.T) {
	_, err := New(DefaultApplicationConfig(), nil, headless.NewFrames(), nil, &countingExample{})
	assert.Error(t, err)
}
