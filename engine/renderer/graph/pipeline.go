package graph

import (
	"errors"
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkexamples/engine/core"
)

var (
	ErrEmptyName           = errors.New("attachment name must not be empty")
	ErrDuplicateAttachment = errors.New("attachment already declared")
	ErrUnknownAttachment   = errors.New("attachment not declared")
	ErrLoadPolicyMismatch  = errors.New("load policy does not match attachment format")
	ErrLayerOutOfRange     = errors.New("layer out of range")
)

// Pipeline collects the attachment and resource declarations of one render
// pass. Registration is pure bookkeeping; Describe turns it into the
// structures a render pass and descriptor layout are built from.
type Pipeline struct {
	name string

	attachments []AttachmentDeclaration
	byName      map[string]int

	outputs    []OutputAttachment
	bufferDeps []BufferDependency
	imageDeps  []ImageDependency
}

func NewPipeline(name string) *Pipeline {
	return &Pipeline{
		name:   name,
		byName: make(map[string]int),
	}
}

func (p *Pipeline) Name() string { return p.name }

// DeclareAttachment registers a named render target. width and height of 0
// inherit the framebuffer size.
func (p *Pipeline) DeclareAttachment(name string, format vk.Format, width, height uint32, options AttachmentOptions) error {
	if name == "" {
		return ErrEmptyName
	}
	if _, ok := p.byName[name]; ok {
		return fmt.Errorf("pipeline %s: %w: %s", p.name, ErrDuplicateAttachment, name)
	}
	p.byName[name] = len(p.attachments)
	p.attachments = append(p.attachments, AttachmentDeclaration{
		Name:    name,
		Format:  format,
		Width:   width,
		Height:  height,
		Options: options,
	})
	core.LogDebug("pipeline %s: declared attachment %s (format %d, %dx%d)", p.name, name, format, width, height)
	return nil
}

// AddOutputAttachment records that the pipeline writes name. Without a layer
// argument the output targets every layer. Every call appends a record.
func (p *Pipeline) AddOutputAttachment(name string, load LoadPolicy, layer ...Layer) error {
	idx, ok := p.byName[name]
	if !ok {
		return fmt.Errorf("pipeline %s: %w: %s", p.name, ErrUnknownAttachment, name)
	}
	decl := p.attachments[idx]

	if load == nil {
		load = Preserve{}
	}
	switch load.(type) {
	case ClearColor:
		if decl.IsDepth() {
			return fmt.Errorf("pipeline %s: %w: color clear on depth attachment %s", p.name, ErrLoadPolicyMismatch, name)
		}
	case ClearDepthStencil:
		if !decl.IsDepth() {
			return fmt.Errorf("pipeline %s: %w: depth/stencil clear on color attachment %s", p.name, ErrLoadPolicyMismatch, name)
		}
	}

	l := AllLayers
	if len(layer) > 0 {
		l = layer[0]
	}
	if i, ok := l.Index(); ok && i >= decl.LayerCount() {
		return fmt.Errorf("pipeline %s: %w: layer %d of %s (has %d)", p.name, ErrLayerOutOfRange, i, name, decl.LayerCount())
	}

	p.outputs = append(p.outputs, OutputAttachment{Name: name, Load: load, Layer: l})
	return nil
}

// AddBufferDependency appends a buffer the pipeline consumes. Declaration
// order is binding order.
func (p *Pipeline) AddBufferDependency(name string, usage vk.BufferUsageFlags) {
	p.bufferDeps = append(p.bufferDeps, BufferDependency{Name: name, Usage: usage})
}

// AddImageDependency appends an image the pipeline consumes. Declaration
// order is binding order.
func (p *Pipeline) AddImageDependency(name string, usage vk.ImageUsageFlags) {
	p.imageDeps = append(p.imageDeps, ImageDependency{Name: name, Usage: usage})
}

func (p *Pipeline) Attachment(name string) (AttachmentDeclaration, bool) {
	idx, ok := p.byName[name]
	if !ok {
		return AttachmentDeclaration{}, false
	}
	return p.attachments[idx], true
}

func (p *Pipeline) Attachments() []AttachmentDeclaration {
	return append([]AttachmentDeclaration(nil), p.attachments...)
}

func (p *Pipeline) Outputs() []OutputAttachment {
	return append([]OutputAttachment(nil), p.outputs...)
}

func (p *Pipeline) BufferDependencies() []BufferDependency {
	return append([]BufferDependency(nil), p.bufferDeps...)
}

func (p *Pipeline) ImageDependencies() []ImageDependency {
	return append([]ImageDependency(nil), p.imageDeps...)
}
