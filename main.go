/*
Runs one of the examples against the recording device.

	go run . [config.toml] [example]
*/
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/vkexamples/engine"
	"github.com/spaghettifunk/vkexamples/engine/assets"
	"github.com/spaghettifunk/vkexamples/engine/core"
	"github.com/spaghettifunk/vkexamples/engine/renderer/headless"
	"github.com/spaghettifunk/vkexamples/engine/systems"
	"github.com/spaghettifunk/vkexamples/testbed"
)

func loadConfig() *engine.ApplicationConfig {
	path := "config.toml"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}
	config, err := engine.LoadConfig(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		core.LogWarn("%s not found, using the default configuration", path)
		config = engine.DefaultApplicationConfig()
	case err != nil:
		core.LogFatal("%v", err)
	}
	if len(os.Args) > 2 {
		config.Example = os.Args[2]
	}
	return config
}

func main() {
	config := loadConfig()
	if err := core.SetLogLevel(config.LogLevel); err != nil {
		core.LogFatal("%v", err)
	}

	device := headless.NewDevice()
	core.LogInfo("using recording device %s", device.ID)

	am := assets.NewAssetManager()
	if err := am.Initialize(config.AssetDir, config.WatchAssets); err != nil {
		core.LogFatal("failed to index assets: %v", err)
	}
	sm, err := systems.NewSystemManager(device, am, systems.ModelSystemConfig{MaxModelCount: config.MaxModels})
	if err != nil {
		core.LogFatal("%v", err)
	}
	example, err := testbed.NewExample(config.Example, config, sm)
	if err != nil {
		core.LogFatal("%v", err)
	}

	e, err := engine.New(config, device, headless.NewFrames(), sm, example)
	if err != nil {
		core.LogFatal("%v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)

	// start shutdown goroutine
	go func() {
		<-sigCh
		e.Stop()
		cancel()
	}()

	if err := e.Initialize(ctx); err != nil {
		_ = e.Shutdown()
		core.LogFatal("failed to initialize %s: %v", example.Name(), err)
	}

	runErr := e.Run(ctx)
	if err := e.Shutdown(); err != nil {
		core.LogError("shutdown: %v", err)
	}
	if runErr != nil {
		core.LogFatal("%v", runErr)
	}
}
