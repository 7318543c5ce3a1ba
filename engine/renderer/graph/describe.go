package graph

import (
	"errors"
	"fmt"

	vk "github.com/goki/vulkan"
)

var ErrExtentMismatch = errors.New("output attachments differ in size")

/**
 * @brief One resolved output of a render pass: the vulkan description plus
 * the image region the framebuffer view covers.
 */
type ResolvedOutput struct {
	Name        string
	Description vk.AttachmentDescription
	Width       uint32
	Height      uint32
	BaseLayer   uint32
	LayerCount  uint32
	IsDepth     bool
}

/**
 * @brief Everything needed to build the render pass, framebuffers and the
 * descriptor set layout of a Pipeline.
 */
type RenderPassDescription struct {
	Name    string
	Outputs []ResolvedOutput
	/** @brief One clear value per output, in output order. */
	ClearValues []vk.ClearValue
	/** @brief References into Outputs for the single subpass. */
	ColorReferences []vk.AttachmentReference
	DepthReference  *vk.AttachmentReference
	/** @brief Framebuffer size and layer count. */
	Width, Height, Layers uint32
	/** @brief Descriptor bindings: buffer dependencies first, then images. */
	Bindings []vk.DescriptorSetLayoutBinding
}

// Describe resolves the declarations against the current swapchain size.
// It makes no GPU calls.
func (p *Pipeline) Describe(swapchainWidth, swapchainHeight uint32) (*RenderPassDescription, error) {
	desc := &RenderPassDescription{Name: p.name}

	for i, out := range p.outputs {
		decl := p.attachments[p.byName[out.Name]]

		w, h := decl.Width, decl.Height
		if w == 0 {
			w = swapchainWidth
		}
		if h == 0 {
			h = swapchainHeight
		}
		if i == 0 {
			desc.Width, desc.Height = w, h
		} else if w != desc.Width || h != desc.Height {
			return nil, fmt.Errorf("pipeline %s: %w: %s is %dx%d, expected %dx%d", p.name, ErrExtentMismatch, out.Name, w, h, desc.Width, desc.Height)
		}

		base, single := out.Layer.Index()
		count := uint32(1)
		if !single {
			base, count = 0, decl.LayerCount()
		}
		if count > desc.Layers {
			desc.Layers = count
		}

		resolved := ResolvedOutput{
			Name:        out.Name,
			Description: attachmentDescription(decl, out.Load),
			Width:       w,
			Height:      h,
			BaseLayer:   base,
			LayerCount:  count,
			IsDepth:     decl.IsDepth(),
		}
		desc.Outputs = append(desc.Outputs, resolved)
		desc.ClearValues = append(desc.ClearValues, clearValue(out.Load))

		if resolved.IsDepth {
			if desc.DepthReference != nil {
				return nil, fmt.Errorf("pipeline %s: more than one depth output (%s)", p.name, out.Name)
			}
			desc.DepthReference = &vk.AttachmentReference{
				Attachment: uint32(i),
				Layout:     vk.ImageLayoutDepthStencilAttachmentOptimal,
			}
		} else {
			desc.ColorReferences = append(desc.ColorReferences, vk.AttachmentReference{
				Attachment: uint32(i),
				Layout:     vk.ImageLayoutColorAttachmentOptimal,
			})
		}
	}

	binding := uint32(0)
	for _, dep := range p.bufferDeps {
		descriptorType := vk.DescriptorTypeUniformBuffer
		if dep.Usage&vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit) != 0 {
			descriptorType = vk.DescriptorTypeStorageBuffer
		}
		desc.Bindings = append(desc.Bindings, layoutBinding(binding, descriptorType))
		binding++
	}
	for _, dep := range p.imageDeps {
		descriptorType := vk.DescriptorTypeCombinedImageSampler
		if dep.Usage&vk.ImageUsageFlags(vk.ImageUsageStorageBit) != 0 {
			descriptorType = vk.DescriptorTypeStorageImage
		}
		desc.Bindings = append(desc.Bindings, layoutBinding(binding, descriptorType))
		binding++
	}

	return desc, nil
}

func attachmentDescription(decl AttachmentDeclaration, load LoadPolicy) vk.AttachmentDescription {
	samples := decl.Options.Samples
	if samples == 0 {
		samples = vk.SampleCount1Bit
	}

	layout := vk.ImageLayoutColorAttachmentOptimal
	if decl.IsDepth() {
		layout = vk.ImageLayoutDepthStencilAttachmentOptimal
	}

	d := vk.AttachmentDescription{
		Format:         decl.Format,
		Samples:        samples,
		LoadOp:         vk.AttachmentLoadOpLoad,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		// Loading requires the contents to already be in the attachment layout.
		InitialLayout: layout,
		FinalLayout:   layout,
	}

	switch load.(type) {
	case ClearColor, ClearDepthStencil:
		d.LoadOp = vk.AttachmentLoadOpClear
		d.InitialLayout = vk.ImageLayoutUndefined
	}
	if HasStencil(decl.Format) {
		d.StencilLoadOp = d.LoadOp
		d.StencilStoreOp = vk.AttachmentStoreOpStore
	}
	return d
}

func clearValue(load LoadPolicy) vk.ClearValue {
	switch c := load.(type) {
	case ClearColor:
		return vk.NewClearValue([]float32{c.R, c.G, c.B, c.A})
	case ClearDepthStencil:
		return vk.NewClearDepthStencil(c.Depth, c.Stencil)
	}
	return vk.ClearValue{}
}

func layoutBinding(binding uint32, descriptorType vk.DescriptorType) vk.DescriptorSetLayoutBinding {
	return vk.DescriptorSetLayoutBinding{
		Binding:         binding,
		DescriptorType:  descriptorType,
		DescriptorCount: 1,
		StageFlags:      vk.ShaderStageFlags(vk.ShaderStageVertexBit | vk.ShaderStageFragmentBit),
	}
}
