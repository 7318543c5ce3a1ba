package headless

import (
	"context"

	"github.com/spaghettifunk/vkexamples/engine/renderer"
)

// Frames records every frame into a fresh Recorder and keeps the one of the
// last finished frame.
type Frames struct {
	current *Recorder
	last    *Recorder
	count   uint64
}

func NewFrames() *Frames {
	return &Frames{}
}

func (f *Frames) BeginFrame(ctx context.Context) (renderer.CommandRecorder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.current = &Recorder{}
	return f.current, nil
}

func (f *Frames) EndFrame(ctx context.Context) error {
	f.last = f.current
	f.current = nil
	f.count++
	return nil
}

// Last returns the commands of the last finished frame.
func (f *Frames) Last() *Recorder {
	if f.last == nil {
		return &Recorder{}
	}
	return f.last
}

func (f *Frames) Count() uint64 { return f.count }
