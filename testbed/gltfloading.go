package testbed

import (
	"context"
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkexamples/engine"
	"github.com/spaghettifunk/vkexamples/engine/renderer"
	"github.com/spaghettifunk/vkexamples/engine/renderer/graph"
	"github.com/spaghettifunk/vkexamples/engine/scene"
	"github.com/spaghettifunk/vkexamples/engine/systems"
)

const gltfModelName = "gltfloading"

// GLTFLoadingExample loads the configured glTF model through the model
// system and draws its node hierarchy every frame.
type GLTFLoadingExample struct {
	base

	models *systems.ModelSystem
}

func NewGLTFLoadingExample(config *engine.ApplicationConfig, models *systems.ModelSystem) *GLTFLoadingExample {
	return &GLTFLoadingExample{
		base:   base{config: config},
		models: models,
	}
}

func (g *GLTFLoadingExample) Name() string { return "gltfloading" }

func (g *GLTFLoadingExample) Prepare(ctx context.Context, device renderer.GraphicsDevice) error {
	g.device = device

	p := graph.NewPipeline("gltf-loading")
	if err := g.declareTargets(p); err != nil {
		return err
	}
	p.AddBufferDependency("scene-ubo", vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit))
	p.AddImageDependency("material-textures", vk.ImageUsageFlags(vk.ImageUsageSampledBit))
	if err := g.describe(p, true); err != nil {
		return err
	}

	_, err := g.models.Acquire(ctx, gltfModelName, g.config.ModelPath, scene.Options{
		DescriptorSetLayout: g.materialLayout,
	})
	return err
}

// Render looks the model up every frame so a hot reload is picked up.
func (g *GLTFLoadingExample) Render(cmd renderer.CommandRecorder) error {
	model, ok := g.models.Get(gltfModelName)
	if !ok {
		return fmt.Errorf("gltfloading: model %s is not loaded", g.config.ModelPath)
	}
	model.Draw(cmd, g.pipelineLayout)
	return nil
}

func (g *GLTFLoadingExample) Destroy() {
	if g.device == nil {
		return
	}
	g.models.Release(gltfModelName)
	g.destroyLayouts()
}
