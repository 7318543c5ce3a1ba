package testbed

import (
	"context"
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkexamples/engine"
	"github.com/spaghettifunk/vkexamples/engine/core"
	"github.com/spaghettifunk/vkexamples/engine/math"
	"github.com/spaghettifunk/vkexamples/engine/renderer"
	"github.com/spaghettifunk/vkexamples/engine/renderer/graph"
	"github.com/spaghettifunk/vkexamples/engine/renderer/metadata"
)

// TriangleExample draws a single colored triangle from device local vertex
// and index buffers.
type TriangleExample struct {
	base

	vertexBuffer *metadata.Buffer
	indexBuffer  *metadata.Buffer
	indexCount   uint32
	model        math.Mat4
}

func NewTriangleExample(config *engine.ApplicationConfig) *TriangleExample {
	return &TriangleExample{
		base:  base{config: config},
		model: math.NewMat4Identity(),
	}
}

func (t *TriangleExample) Name() string { return "triangle" }

func (t *TriangleExample) Prepare(ctx context.Context, device renderer.GraphicsDevice) error {
	t.device = device

	p := graph.NewPipeline("triangle")
	if err := t.declareTargets(p); err != nil {
		return err
	}
	if err := t.describe(p, false); err != nil {
		return err
	}

	vertices := []math.Vertex3D{
		{Position: math.NewVec3(1, 1, 0), Colour: math.Vec4{X: 1, Y: 0, Z: 0, W: 1}},
		{Position: math.NewVec3(-1, 1, 0), Colour: math.Vec4{X: 0, Y: 1, Z: 0, W: 1}},
		{Position: math.NewVec3(0, -1, 0), Colour: math.Vec4{X: 0, Y: 0, Z: 1, W: 1}},
	}
	indices := []uint32{0, 1, 2}

	var err error
	t.vertexBuffer, err = renderer.StageBuffer(ctx, device,
		vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit), math.AppendVertices(nil, vertices))
	if err != nil {
		return fmt.Errorf("triangle vertex buffer: %w", err)
	}
	t.indexBuffer, err = renderer.StageBuffer(ctx, device,
		vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit), math.AppendIndices(nil, indices))
	if err != nil {
		return fmt.Errorf("triangle index buffer: %w", err)
	}
	t.indexCount = uint32(len(indices))

	core.LogInfo("triangle: uploaded %d vertices and %d indices", len(vertices), len(indices))
	return nil
}

func (t *TriangleExample) Render(cmd renderer.CommandRecorder) error {
	if t.vertexBuffer == nil || t.indexBuffer == nil {
		return fmt.Errorf("triangle: not prepared")
	}
	cmd.BindVertexBuffer(t.vertexBuffer, 0)
	cmd.BindIndexBuffer(t.indexBuffer, 0, vk.IndexTypeUint32)
	cmd.PushConstants(t.pipelineLayout, vk.ShaderStageFlags(vk.ShaderStageVertexBit), 0, t.model.Bytes())
	cmd.DrawIndexed(t.indexCount, 1, 0, 0, 0)
	return nil
}

func (t *TriangleExample) Destroy() {
	if t.device == nil {
		return
	}
	if t.vertexBuffer != nil {
		t.device.DestroyBuffer(t.vertexBuffer)
		t.vertexBuffer = nil
	}
	if t.indexBuffer != nil {
		t.device.DestroyBuffer(t.indexBuffer)
		t.indexBuffer = nil
	}
	t.destroyLayouts()
}
