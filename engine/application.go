package engine

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/pelletier/go-toml/v2"
)

type ApplicationConfig struct {
	// The application name, used in logs.
	Name string `toml:"name"`
	// Framebuffer size the render passes are described against.
	Width  uint32 `toml:"width"`
	Height uint32 `toml:"height"`
	// One of debug, info, warn, error, fatal.
	LogLevel string `toml:"log_level"`
	// Name of the example to run.
	Example string `toml:"example"`
	// Directory indexed by the asset manager.
	AssetDir string `toml:"asset_dir"`
	// glTF model loaded by the gltf example, relative to AssetDir.
	ModelPath string `toml:"model_path"`
	// Watch AssetDir and hot reload changed models.
	WatchAssets bool `toml:"watch_assets"`
	// Clear color of the color attachment.
	ClearColor [4]float32 `toml:"clear_color"`
	// Number of frames to render, 0 runs until stopped.
	Frames uint64 `toml:"frames"`
	// Frame pacing target, 0 disables pacing.
	TargetFPS float64 `toml:"target_fps"`
	// Timeout of one-shot submissions in milliseconds.
	FenceTimeoutMS uint32 `toml:"fence_timeout_ms"`
	// Size of the descriptor pool.
	MaxDescriptorSets uint32 `toml:"max_descriptor_sets"`
	// Number of models the model system keeps loaded.
	MaxModels uint32 `toml:"max_models"`
}

func DefaultApplicationConfig() *ApplicationConfig {
	return &ApplicationConfig{
		Name:              "Vulkan Examples",
		Width:             1280,
		Height:            720,
		LogLevel:          "info",
		Example:           "gltfloading",
		AssetDir:          "assets",
		ModelPath:         "models/quads.gltf",
		ClearColor:        [4]float32{0.025, 0.025, 0.025, 1},
		TargetFPS:         60,
		FenceTimeoutMS:    1000,
		MaxDescriptorSets: 256,
		MaxModels:         16,
	}
}

// LoadConfig reads a toml file on top of the defaults. Keys missing from the
// file keep their default, unknown keys are an error.
func LoadConfig(path string) (*ApplicationConfig, error) {
	config := DefaultApplicationConfig()

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if err := toml.NewDecoder(f).DisallowUnknownFields().Decode(config); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return nil, fmt.Errorf("config %s: %s", path, strict.String())
		}
		var decode *toml.DecodeError
		if errors.As(err, &decode) {
			row, col := decode.Position()
			return nil, fmt.Errorf("config %s:%d:%d: %w", path, row, col, err)
		}
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return config, nil
}

func (c *ApplicationConfig) Validate() error {
	if c.Width == 0 || c.Height == 0 {
		return fmt.Errorf("framebuffer size %dx%d must not be empty", c.Width, c.Height)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.Example == "" {
		return errors.New("no example selected")
	}
	if c.TargetFPS < 0 {
		return fmt.Errorf("target fps %g is negative", c.TargetFPS)
	}
	return nil
}

func (c *ApplicationConfig) FenceTimeout() time.Duration {
	return time.Duration(c.FenceTimeoutMS) * time.Millisecond
}
