package vulkan

import (
	"context"
	"errors"
	"sync"
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkexamples/engine/core"
	"github.com/spaghettifunk/vkexamples/engine/renderer"
	"github.com/spaghettifunk/vkexamples/engine/renderer/graph"
	"github.com/spaghettifunk/vkexamples/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectMemoryType(t *testing.T) {
	types := []vk.MemoryPropertyFlags{
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit),
	}
	hostCoherent := vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)

	idx, ok := selectMemoryType(types, 0b111, hostCoherent)
	require.True(t, ok)
	assert.Equal(t, uint32(2), idx)

	idx, ok = selectMemoryType(types, 0b111, vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit))
	require.True(t, ok)
	assert.Equal(t, uint32(1), idx)

	// the filter excludes every matching type
	_, ok = selectMemoryType(types, 0b001, hostCoherent)
	assert.False(t, ok)
}

func TestFindMemoryIndexError(t *testing.T) {
	d := &Device{memoryTypes: []vk.MemoryPropertyFlags{vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)}}
	_, err := d.FindMemoryIndex(1, uint32(vk.MemoryPropertyHostVisibleBit))
	assert.EqualError(t, err, "no memory type matches filter 0x1 with properties 0x2")
}

func TestVulkanResultString(t *testing.T) {
	assert.Equal(t, "VK_SUCCESS", VulkanResultString(vk.Success, false))
	assert.Equal(t, "VK_ERROR_DEVICE_LOST The logical or physical device has been lost.", VulkanResultString(vk.ErrorDeviceLost, true))
	assert.True(t, VulkanResultIsSuccess(vk.Timeout))
	assert.False(t, VulkanResultIsSuccess(vk.ErrorOutOfDeviceMemory))
}

func TestTransitionFor(t *testing.T) {
	tr, err := transitionFor(vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal)
	require.NoError(t, err)
	assert.Equal(t, vk.AccessFlags(vk.AccessTransferWriteBit), tr.dstAccess)
	assert.Zero(t, tr.srcAccess)

	tr, err = transitionFor(vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutShaderReadOnlyOptimal)
	require.NoError(t, err)
	assert.Equal(t, vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit), tr.dstStage)

	_, err = transitionFor(vk.ImageLayoutShaderReadOnlyOptimal, vk.ImageLayoutUndefined)
	assert.Error(t, err)
}

func TestRenderPassCreateInfo(t *testing.T) {
	p := graph.NewPipeline("triangle")
	require.NoError(t, p.DeclareAttachment("color", vk.FormatB8g8r8a8Unorm, 0, 0, graph.AttachmentOptions{}))
	require.NoError(t, p.DeclareAttachment("depth", vk.FormatD32Sfloat, 0, 0, graph.AttachmentOptions{}))
	require.NoError(t, p.AddOutputAttachment("color", graph.ClearColor{A: 1}))
	require.NoError(t, p.AddOutputAttachment("depth", graph.ClearDepthStencil{Depth: 1}))
	desc, err := p.Describe(800, 600)
	require.NoError(t, err)

	info := renderPassCreateInfo(desc)
	assert.Equal(t, uint32(2), info.AttachmentCount)
	require.Len(t, info.PSubpasses, 1)
	assert.Equal(t, uint32(1), info.PSubpasses[0].ColorAttachmentCount)
	require.NotNil(t, info.PSubpasses[0].PDepthStencilAttachment)
	assert.Equal(t, uint32(1), info.PSubpasses[0].PDepthStencilAttachment.Attachment)
	assert.NotZero(t, info.PDependencies[0].DstStageMask&vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit))
}

func TestSPIRVWords(t *testing.T) {
	words, err := SPIRVWords([]byte{0x03, 0x02, 0x23, 0x07, 0x00, 0x00, 0x01, 0x00})
	require.NoError(t, err)
	assert.Equal(t, []uint32{spirvMagic, 0x00010000}, words)

	_, err = SPIRVWords([]byte{1, 2, 3})
	assert.Error(t, err)
	_, err = SPIRVWords([]byte{0, 0, 0, 0})
	assert.Error(t, err)
}

func TestVertex3DAttributes(t *testing.T) {
	binding, attrs := Vertex3DAttributes()
	assert.Equal(t, uint32(48), binding.Stride)
	require.Len(t, attrs, 4)
	assert.Equal(t, uint32(24), attrs[2].Offset)
	assert.Equal(t, vk.FormatR32g32Sfloat, attrs[2].Format)
	assert.Equal(t, "main\x00", VulkanSafeString("main"))
}

func TestLockPoolSerializesGroups(t *testing.T) {
	pool := NewVulkanLockPool()
	pool.SetQueueFamily(0)

	var wg sync.WaitGroup
	counter := 0
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = pool.SafeCall(DescriptorManagement, func() error {
				counter++
				return nil
			})
		}()
	}
	wg.Wait()
	assert.Equal(t, 32, counter)

	errBusy := errors.New("busy")
	assert.ErrorIs(t, pool.SafeQueueCall(3, func() error { return errBusy }), errBusy)
	assert.NoError(t, pool.SafeQueueCall(0, func() error { return nil }))
}

func TestDeviceValidatesBeforeCallingVulkan(t *testing.T) {
	d := &Device{}
	hostVisible := vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit)
	deviceLocal := vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
	usage := vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit)

	_, err := d.CreateBuffer(usage, hostVisible, 0, nil)
	assert.ErrorIs(t, err, core.ErrResourceCreation)
	_, err = d.CreateBuffer(usage, deviceLocal, 4, []byte{1, 2, 3, 4})
	assert.ErrorIs(t, err, core.ErrResourceCreation)
	_, err = d.CreateBuffer(usage, hostVisible, 2, []byte{1, 2, 3})
	assert.ErrorIs(t, err, core.ErrResourceCreation)

	_, err = d.CreateTextureFromPixels([]byte{1, 2, 3}, vk.FormatR8g8b8a8Unorm, 1, 1)
	assert.ErrorIs(t, err, core.ErrResourceCreation)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err = d.SubmitOneShot(ctx, func(renderer.CommandRecorder) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)

	_, err = d.CreateDescriptorSet(nil, nil)
	assert.ErrorIs(t, err, core.ErrResourceCreation)
	_, err = d.CreateDescriptorSet(&metadata.DescriptorSetLayout{}, &metadata.Texture{})
	assert.ErrorIs(t, err, core.ErrResourceCreation)

	// sets that were never allocated are ignored
	d.DestroyDescriptorSet(nil)
	d.DestroyDescriptorSet(&metadata.DescriptorSet{ID: 1})
}
