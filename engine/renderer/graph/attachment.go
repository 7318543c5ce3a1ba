package graph

import (
	"fmt"

	vk "github.com/goki/vulkan"
)

/**
 * @brief Creation options of a declared attachment.
 */
type AttachmentOptions struct {
	/** @brief Extra image usage on top of the color/depth attachment bit. */
	Usage vk.ImageUsageFlags
	/** @brief Number of array layers. 0 is treated as 1. Cubemaps use 6. */
	Layers uint32
	/** @brief Sample count. 0 is treated as vk.SampleCount1Bit. */
	Samples vk.SampleCountFlagBits
}

/**
 * @brief A named render target description owned by a Pipeline.
 * Width and Height of 0 inherit the framebuffer size.
 */
type AttachmentDeclaration struct {
	Name    string
	Format  vk.Format
	Width   uint32
	Height  uint32
	Options AttachmentOptions
}

// LayerCount returns the number of layers of the attachment, at least 1.
func (a AttachmentDeclaration) LayerCount() uint32 {
	if a.Options.Layers == 0 {
		return 1
	}
	return a.Options.Layers
}

// IsDepth reports whether the attachment holds depth and/or stencil data.
func (a AttachmentDeclaration) IsDepth() bool {
	return IsDepthFormat(a.Format)
}

// LoadPolicy says what happens to an output attachment when the pass
// begins. It is one of ClearColor, ClearDepthStencil or Preserve.
type LoadPolicy interface {
	loadPolicy()
	String() string
}

// ClearColor clears a color attachment to the given value.
type ClearColor struct {
	R, G, B, A float32
}

// ClearDepthStencil clears a depth/stencil attachment.
type ClearDepthStencil struct {
	Depth   float32
	Stencil uint32
}

// Preserve keeps the existing contents of the attachment.
type Preserve struct{}

func (ClearColor) loadPolicy()        {}
func (ClearDepthStencil) loadPolicy() {}
func (Preserve) loadPolicy()          {}

func (c ClearColor) String() string {
	return fmt.Sprintf("clear-color(%g, %g, %g, %g)", c.R, c.G, c.B, c.A)
}

func (c ClearDepthStencil) String() string {
	return fmt.Sprintf("clear-depth-stencil(%g, %d)", c.Depth, c.Stencil)
}

func (Preserve) String() string { return "preserve" }

// Layer selects either every layer of a layered attachment or one of them.
// The zero Layer is AllLayers.
type Layer struct {
	index uint32
	set   bool
}

// AllLayers targets every layer of the attachment.
var AllLayers = Layer{}

// LayerIndex targets a single layer.
func LayerIndex(i uint32) Layer {
	return Layer{index: i, set: true}
}

// IsAll reports whether l targets every layer.
func (l Layer) IsAll() bool { return !l.set }

// Index returns the concrete layer and false for AllLayers.
func (l Layer) Index() (uint32, bool) {
	return l.index, l.set
}

func (l Layer) String() string {
	if !l.set {
		return "all"
	}
	return fmt.Sprintf("%d", l.index)
}

/**
 * @brief An attachment the pipeline writes into.
 */
type OutputAttachment struct {
	/** @brief The declared attachment this output refers to. */
	Name string
	/** @brief What happens to the previous contents. */
	Load LoadPolicy
	/** @brief The layer written, or AllLayers. */
	Layer Layer
}

/** @brief An externally produced buffer the pipeline consumes. */
type BufferDependency struct {
	Name  string
	Usage vk.BufferUsageFlags
}

/** @brief An externally produced image the pipeline consumes. */
type ImageDependency struct {
	Name  string
	Usage vk.ImageUsageFlags
}

// IsDepthFormat reports whether format carries a depth or stencil aspect.
func IsDepthFormat(format vk.Format) bool {
	switch format {
	case vk.FormatD16Unorm, vk.FormatX8D24UnormPack32, vk.FormatD32Sfloat,
		vk.FormatS8Uint, vk.FormatD16UnormS8Uint, vk.FormatD24UnormS8Uint,
		vk.FormatD32SfloatS8Uint:
		return true
	}
	return false
}

// HasStencil reports whether format carries a stencil aspect.
func HasStencil(format vk.Format) bool {
	switch format {
	case vk.FormatS8Uint, vk.FormatD16UnormS8Uint, vk.FormatD24UnormS8Uint, vk.FormatD32SfloatS8Uint:
		return true
	}
	return false
}
