package engine

import (
	"context"

	"github.com/spaghettifunk/vkexamples/engine/renderer"
)

// Example is one runnable demo. Prepare creates the device resources, Render
// records one frame and Destroy releases what Prepare created.
type Example interface {
	Name() string
	Prepare(ctx context.Context, device renderer.GraphicsDevice) error
	Render(cmd renderer.CommandRecorder) error
	Destroy()
}

// FrameRecorder hands out the command recorder of each frame and submits it
// when the frame ends.
type FrameRecorder interface {
	BeginFrame(ctx context.Context) (renderer.CommandRecorder, error)
	EndFrame(ctx context.Context) error
}
