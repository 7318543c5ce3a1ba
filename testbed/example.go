package testbed

import (
	"fmt"
	"sort"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkexamples/engine"
	"github.com/spaghettifunk/vkexamples/engine/core"
	"github.com/spaghettifunk/vkexamples/engine/renderer"
	"github.com/spaghettifunk/vkexamples/engine/renderer/graph"
	"github.com/spaghettifunk/vkexamples/engine/renderer/metadata"
	"github.com/spaghettifunk/vkexamples/engine/systems"
)

const (
	colorFormat = vk.FormatB8g8r8a8Unorm
	depthFormat = vk.FormatD24UnormS8Uint
)

// Factory builds an example from the application config.
type Factory func(config *engine.ApplicationConfig, sm *systems.SystemManager) engine.Example

var registry = map[string]Factory{
	"triangle": func(config *engine.ApplicationConfig, _ *systems.SystemManager) engine.Example {
		return NewTriangleExample(config)
	},
	"gltfloading": func(config *engine.ApplicationConfig, sm *systems.SystemManager) engine.Example {
		return NewGLTFLoadingExample(config, sm.ModelSystem)
	},
}

func NewExample(name string, config *engine.ApplicationConfig, sm *systems.SystemManager) (engine.Example, error) {
	factory, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown example %q, available: %v", name, Names())
	}
	return factory(config, sm), nil
}

// Names lists the registered examples in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// base holds the pipeline declaration and layouts every example creates in
// Prepare.
type base struct {
	config *engine.ApplicationConfig
	device renderer.GraphicsDevice

	pipeline    *graph.Pipeline
	description *graph.RenderPassDescription

	materialLayout *metadata.DescriptorSetLayout
	sceneLayout    *metadata.DescriptorSetLayout
	pipelineLayout *metadata.PipelineLayout
}

// declareTargets adds the swapchain sized color and depth attachments, both
// cleared at the start of the pass.
func (b *base) declareTargets(p *graph.Pipeline) error {
	if err := p.DeclareAttachment("color", colorFormat, 0, 0, graph.AttachmentOptions{}); err != nil {
		return err
	}
	if err := p.DeclareAttachment("depth", depthFormat, 0, 0, graph.AttachmentOptions{}); err != nil {
		return err
	}
	c := b.config.ClearColor
	if err := p.AddOutputAttachment("color", graph.ClearColor{R: c[0], G: c[1], B: c[2], A: c[3]}); err != nil {
		return err
	}
	return p.AddOutputAttachment("depth", graph.ClearDepthStencil{Depth: 1, Stencil: 0})
}

// describe resolves p against the framebuffer size and creates the layouts.
// Set 0 is the per material image when materialSet is true, the pipeline
// dependencies follow in the next set.
func (b *base) describe(p *graph.Pipeline, materialSet bool) error {
	desc, err := p.Describe(b.config.Width, b.config.Height)
	if err != nil {
		return err
	}
	b.pipeline, b.description = p, desc

	var sets []*metadata.DescriptorSetLayout
	if materialSet {
		b.materialLayout, err = b.createSetLayout(p.Name()+"-material", []vk.DescriptorSetLayoutBinding{{
			Binding:         0,
			DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
		}})
		if err != nil {
			return err
		}
		sets = append(sets, b.materialLayout)
	}
	if len(desc.Bindings) > 0 {
		if b.sceneLayout, err = b.createSetLayout(p.Name()+"-scene", desc.Bindings); err != nil {
			return err
		}
		sets = append(sets, b.sceneLayout)
	}

	if ld, ok := b.device.(renderer.LayoutDevice); ok {
		b.pipelineLayout, err = ld.CreatePipelineLayout(p.Name(), sets...)
		if err != nil {
			return err
		}
	} else {
		b.pipelineLayout = &metadata.PipelineLayout{Name: p.Name()}
	}

	core.LogDebug("%s: %d outputs, %d bindings, %dx%dx%d", p.Name(), len(desc.Outputs), len(desc.Bindings), desc.Width, desc.Height, desc.Layers)
	return nil
}

func (b *base) createSetLayout(name string, bindings []vk.DescriptorSetLayoutBinding) (*metadata.DescriptorSetLayout, error) {
	if ld, ok := b.device.(renderer.LayoutDevice); ok {
		return ld.CreateDescriptorSetLayout(name, bindings)
	}
	return &metadata.DescriptorSetLayout{Name: name}, nil
}

func (b *base) destroyLayouts() {
	ld, ok := b.device.(renderer.LayoutDevice)
	if ok {
		if b.pipelineLayout != nil {
			ld.DestroyPipelineLayout(b.pipelineLayout)
		}
		if b.sceneLayout != nil {
			ld.DestroyDescriptorSetLayout(b.sceneLayout)
		}
		if b.materialLayout != nil {
			ld.DestroyDescriptorSetLayout(b.materialLayout)
		}
	}
	b.pipelineLayout, b.sceneLayout, b.materialLayout = nil, nil, nil
}

func (b *base) Description() *graph.RenderPassDescription { return b.description }
func (b *base) Pipeline() *graph.Pipeline                 { return b.pipeline }
func (b *base) PipelineLayout() *metadata.PipelineLayout  { return b.pipelineLayout }
