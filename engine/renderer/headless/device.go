// Package headless implements renderer.GraphicsDevice in memory. Buffers and
// textures keep their bytes, every recorded command is kept, and allocation
// failures can be injected. Tests and dry runs use it in place of a GPU.
package headless

import (
	"context"
	"errors"
	"fmt"
	"sync"

	vk "github.com/goki/vulkan"
	"github.com/google/uuid"
	"github.com/spaghettifunk/vkexamples/engine/core"
	"github.com/spaghettifunk/vkexamples/engine/renderer"
	"github.com/spaghettifunk/vkexamples/engine/renderer/metadata"
)

var ErrInjected = errors.New("injected allocation failure")

type CommandKind int

const (
	CmdCopyBuffer CommandKind = iota
	CmdBindVertexBuffer
	CmdBindIndexBuffer
	CmdPushConstants
	CmdBindDescriptorSet
	CmdDrawIndexed
)

func (k CommandKind) String() string {
	switch k {
	case CmdCopyBuffer:
		return "copy-buffer"
	case CmdBindVertexBuffer:
		return "bind-vertex-buffer"
	case CmdBindIndexBuffer:
		return "bind-index-buffer"
	case CmdPushConstants:
		return "push-constants"
	case CmdBindDescriptorSet:
		return "bind-descriptor-set"
	case CmdDrawIndexed:
		return "draw-indexed"
	}
	return "unknown"
}

// Command is one recorded call. Only the fields relevant to Kind are set.
type Command struct {
	Kind          CommandKind
	Src, Dst      *metadata.Buffer
	Size          uint64
	Offset        uint64
	IndexType     vk.IndexType
	Layout        *metadata.PipelineLayout
	Stages        vk.ShaderStageFlags
	PushOffset    uint32
	Data          []byte
	Set           *metadata.DescriptorSet
	IndexCount    uint32
	InstanceCount uint32
	FirstIndex    uint32
	VertexOffset  int32
	FirstInstance uint32
}

type bufferData struct {
	bytes []byte
}

type textureData struct {
	pixels []byte
}

// Device is an in-memory GraphicsDevice. It is safe for concurrent use.
type Device struct {
	ID uuid.UUID

	mu        sync.Mutex
	nextID    uint64
	buffers   map[uint64]*metadata.Buffer
	textures  map[uint64]*metadata.Texture
	liveSets  map[uint64]*metadata.DescriptorSet
	sets      uint64
	submits   int
	transfers []Command
	failAfter int
}

func NewDevice() *Device {
	return &Device{
		ID:        uuid.New(),
		buffers:   make(map[uint64]*metadata.Buffer),
		textures:  make(map[uint64]*metadata.Texture),
		liveSets:  make(map[uint64]*metadata.DescriptorSet),
		failAfter: -1,
	}
}

// FailAfter lets n more allocations succeed, then fails the next one with
// a ResourceCreationError. A negative n disables injection.
func (d *Device) FailAfter(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failAfter = n
}

func (d *Device) allocate(resource string) (uint64, error) {
	if d.failAfter == 0 {
		d.failAfter = -1
		return 0, &core.ResourceCreationError{Resource: resource, Err: ErrInjected}
	}
	if d.failAfter > 0 {
		d.failAfter--
	}
	d.nextID++
	return d.nextID, nil
}

func (d *Device) CreateBuffer(usage vk.BufferUsageFlags, props vk.MemoryPropertyFlags, size uint64, data []byte) (*metadata.Buffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if data != nil {
		if props&vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit) == 0 {
			return nil, &core.ResourceCreationError{Resource: "buffer", Err: errors.New("initial data requires host visible memory")}
		}
		if uint64(len(data)) > size {
			return nil, &core.ResourceCreationError{Resource: "buffer", Err: fmt.Errorf("%d bytes do not fit in %d", len(data), size)}
		}
	}
	if size == 0 {
		return nil, &core.ResourceCreationError{Resource: "buffer", Result: "VK_ERROR_VALIDATION_FAILED", Err: errors.New("size must be greater than 0")}
	}

	id, err := d.allocate("buffer")
	if err != nil {
		return nil, err
	}
	bd := &bufferData{bytes: make([]byte, size)}
	copy(bd.bytes, data)

	b := &metadata.Buffer{
		ID:               id,
		RenderBufferType: metadata.BufferTypeFromUsage(usage),
		Usage:            usage,
		Properties:       props,
		TotalSize:        size,
		InternalData:     bd,
	}
	d.buffers[id] = b
	return b, nil
}

func (d *Device) DestroyBuffer(buffer *metadata.Buffer) {
	if buffer == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.buffers, buffer.ID)
	buffer.InternalData = nil
}

func (d *Device) CreateTextureFromPixels(pixels []byte, format vk.Format, width, height uint32) (*metadata.Texture, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	t := &metadata.Texture{
		TextureType:  metadata.TextureType2d,
		Width:        width,
		Height:       height,
		ChannelCount: 4,
		Format:       format,
	}
	if uint64(len(pixels)) != t.Size() {
		return nil, &core.ResourceCreationError{Resource: "texture", Err: fmt.Errorf("expected %d bytes of pixels, got %d", t.Size(), len(pixels))}
	}
	id, err := d.allocate("texture")
	if err != nil {
		return nil, err
	}
	t.ID = id
	t.InternalData = &textureData{pixels: append([]byte(nil), pixels...)}
	d.textures[id] = t
	return t, nil
}

func (d *Device) DestroyTexture(texture *metadata.Texture) {
	if texture == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.textures, texture.ID)
	texture.InternalData = nil
}

func (d *Device) CreateDescriptorSet(layout *metadata.DescriptorSetLayout, texture *metadata.Texture) (*metadata.DescriptorSet, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if texture == nil || texture.InternalData == nil {
		return nil, &core.ResourceCreationError{Resource: "descriptor set", Err: errors.New("texture is not alive")}
	}
	id, err := d.allocate("descriptor set")
	if err != nil {
		return nil, err
	}
	d.sets++
	set := &metadata.DescriptorSet{ID: id, InternalData: texture}
	d.liveSets[id] = set
	return set, nil
}

func (d *Device) DestroyDescriptorSet(set *metadata.DescriptorSet) {
	if set == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.liveSets, set.ID)
	set.InternalData = nil
}

func (d *Device) SubmitOneShot(ctx context.Context, record func(cmd renderer.CommandRecorder) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rec := &Recorder{}
	if err := record(rec); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	for _, c := range rec.Commands {
		if c.Kind == CmdCopyBuffer {
			src, ok := c.Src.InternalData.(*bufferData)
			if !ok {
				return &core.ResourceCreationError{Resource: "transfer", Err: errors.New("source buffer destroyed")}
			}
			dst, ok := c.Dst.InternalData.(*bufferData)
			if !ok {
				return &core.ResourceCreationError{Resource: "transfer", Err: errors.New("destination buffer destroyed")}
			}
			copy(dst.bytes[:c.Size], src.bytes[:c.Size])
		}
	}
	d.transfers = append(d.transfers, rec.Commands...)
	d.submits++
	return nil
}

// Contents returns a copy of the bytes held by buffer.
func (d *Device) Contents(buffer *metadata.Buffer) []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	if bd, ok := buffer.InternalData.(*bufferData); ok {
		return append([]byte(nil), bd.bytes...)
	}
	return nil
}

// Pixels returns a copy of the pixels uploaded into texture.
func (d *Device) Pixels(texture *metadata.Texture) []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	if td, ok := texture.InternalData.(*textureData); ok {
		return append([]byte(nil), td.pixels...)
	}
	return nil
}

func (d *Device) LiveBuffers() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.buffers)
}

func (d *Device) LiveTextures() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.textures)
}

func (d *Device) Submits() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.submits
}

// Transfers returns every command recorded through SubmitOneShot.
func (d *Device) Transfers() []Command {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Command(nil), d.transfers...)
}

// LiveDescriptorSets returns the number of sets not yet destroyed.
func (d *Device) LiveDescriptorSets() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.liveSets)
}

// DescriptorSets returns the number of descriptor sets handed out.
func (d *Device) DescriptorSets() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sets
}

var _ renderer.GraphicsDevice = (*Device)(nil)
var _ renderer.CommandRecorder = (*Recorder)(nil)

func (d *Device) CreateDescriptorSetLayout(name string, bindings []vk.DescriptorSetLayoutBinding) (*metadata.DescriptorSetLayout, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, err := d.allocate("descriptor set layout"); err != nil {
		return nil, err
	}
	return &metadata.DescriptorSetLayout{
		Name:         name,
		InternalData: append([]vk.DescriptorSetLayoutBinding(nil), bindings...),
	}, nil
}

func (d *Device) DestroyDescriptorSetLayout(layout *metadata.DescriptorSetLayout) {
	if layout != nil {
		layout.InternalData = nil
	}
}

func (d *Device) CreatePipelineLayout(name string, setLayouts ...*metadata.DescriptorSetLayout) (*metadata.PipelineLayout, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, err := d.allocate("pipeline layout"); err != nil {
		return nil, err
	}
	return &metadata.PipelineLayout{
		Name:         name,
		InternalData: append([]*metadata.DescriptorSetLayout(nil), setLayouts...),
	}, nil
}

func (d *Device) DestroyPipelineLayout(layout *metadata.PipelineLayout) {
	if layout != nil {
		layout.InternalData = nil
	}
}

var _ renderer.LayoutDevice = (*Device)(nil)
