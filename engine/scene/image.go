package scene

import (
	"bytes"
	"encoding/base64"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/spaghettifunk/vkexamples/engine/core"
	"github.com/spaghettifunk/vkexamples/engine/renderer/metadata"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// DecodePixels decodes an encoded image into tightly packed 8 bit pixels.
// Opaque sources (YCbCr, Gray) come back with 3 channels, everything else
// with 4.
func DecodePixels(data []byte) (*metadata.ImageResourceData, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	out := &metadata.ImageResourceData{Width: uint32(w), Height: uint32(h)}

	switch img := src.(type) {
	case *image.YCbCr, *image.Gray:
		out.ChannelCount = 3
		out.Pixels = make([]byte, 0, w*h*3)
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				r, g, b, _ := img.At(x, y).RGBA()
				out.Pixels = append(out.Pixels, byte(r>>8), byte(g>>8), byte(b>>8))
			}
		}
	case *image.NRGBA:
		out.ChannelCount = 4
		out.Pixels = packRows(img.Pix, img.Stride, w*4, h)
	default:
		nrgba := image.NewNRGBA(image.Rect(0, 0, w, h))
		draw.Draw(nrgba, nrgba.Bounds(), src, bounds.Min, draw.Src)
		out.ChannelCount = 4
		out.Pixels = nrgba.Pix
	}
	return out, nil
}

func packRows(pix []byte, stride, rowBytes, rows int) []byte {
	if stride == rowBytes {
		return append([]byte(nil), pix[:rowBytes*rows]...)
	}
	out := make([]byte, 0, rowBytes*rows)
	for y := 0; y < rows; y++ {
		out = append(out, pix[y*stride:y*stride+rowBytes]...)
	}
	return out
}

// ExpandRGBToRGBA inserts an opaque alpha channel after every RGB triplet.
func ExpandRGBToRGBA(rgb []byte, width, height uint32) []byte {
	n := int(width) * int(height)
	out := make([]byte, n*4)
	for i := 0; i < n; i++ {
		copy(out[i*4:i*4+3], rgb[i*3:i*3+3])
		out[i*4+3] = 0xFF
	}
	return out
}

// imageBytes returns the encoded bytes of img from its buffer view, a data
// URI or a file next to the document.
func (b *builder) imageBytes(index int, img *gltf.Image) ([]byte, error) {
	if img.BufferView != nil {
		bvIndex := *img.BufferView
		if bvIndex < 0 || bvIndex >= len(b.doc.BufferViews) {
			return nil, b.parseError("image %d: buffer view %d out of range", index, bvIndex)
		}
		bv := b.doc.BufferViews[bvIndex]
		if bv.Buffer < 0 || bv.ByteOffset < 0 || bv.ByteLength < 0 {
			return nil, b.parseError("image %d: malformed buffer view %d", index, bvIndex)
		}
		data, err := modeler.ReadBufferView(b.doc, bv)
		if err != nil {
			return nil, b.parseError("image %d: buffer view %d: %v", index, bvIndex, err)
		}
		return data, nil
	}

	if img.URI == "" {
		return nil, b.parseError("image %d has neither a buffer view nor a uri", index)
	}
	if strings.HasPrefix(img.URI, "data:") {
		comma := strings.IndexByte(img.URI, ',')
		if comma < 0 || !strings.HasSuffix(img.URI[:comma], ";base64") {
			return nil, b.parseError("image %d: only base64 data uris are supported", index)
		}
		data, err := base64.StdEncoding.DecodeString(img.URI[comma+1:])
		if err != nil {
			return nil, b.parseError("image %d: %v", index, err)
		}
		return data, nil
	}

	name, err := url.PathUnescape(img.URI)
	if err != nil {
		return nil, b.parseError("image %d: %v", index, err)
	}
	data, err := os.ReadFile(filepath.Join(b.dir, filepath.FromSlash(name)))
	if err != nil {
		return nil, &core.ParseError{Path: b.path, Err: err}
	}
	return data, nil
}

func (b *builder) loadImages() error {
	for i, src := range b.doc.Images {
		if err := b.ctx.Err(); err != nil {
			return err
		}
		data, err := b.imageBytes(i, src)
		if err != nil {
			return err
		}
		decoded, err := DecodePixels(data)
		if err != nil {
			return b.parseError("image %d: %v", i, err)
		}
		pixels := decoded.Pixels
		if decoded.ChannelCount == 3 {
			pixels = ExpandRGBToRGBA(pixels, decoded.Width, decoded.Height)
		}

		texture, err := b.device.CreateTextureFromPixels(pixels, b.opts.TextureFormat, decoded.Width, decoded.Height)
		if err != nil {
			return err
		}
		texture.Name = src.Name
		b.model.images = append(b.model.images, Image{Name: src.Name, Texture: texture})

		set, err := b.device.CreateDescriptorSet(b.opts.DescriptorSetLayout, texture)
		if err != nil {
			return err
		}
		b.model.images[len(b.model.images)-1].DescriptorSet = set
		core.LogDebug("model %s: image %d uploaded (%dx%d, %d channels)", b.model.name, i, decoded.Width, decoded.Height, decoded.ChannelCount)
	}
	return nil
}

var whitePixel = []byte{0xff, 0xff, 0xff, 0xff}

// loadFallback uploads a 1x1 white texture for primitives without a base
// colour image, so every draw binds a material set. Skipped when no layout
// was given or every primitive is textured.
func (b *builder) loadFallback() error {
	if b.opts.DescriptorSetLayout == nil || !b.model.hasUntexturedPrimitive() {
		return nil
	}
	texture, err := b.device.CreateTextureFromPixels(whitePixel, b.opts.TextureFormat, 1, 1)
	if err != nil {
		return err
	}
	texture.Name = "fallback"
	b.model.fallback = Image{Name: texture.Name, Texture: texture}

	set, err := b.device.CreateDescriptorSet(b.opts.DescriptorSetLayout, texture)
	if err != nil {
		return err
	}
	b.model.fallback.DescriptorSet = set
	return nil
}
