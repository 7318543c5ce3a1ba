package loaders

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/spaghettifunk/vkexamples/engine/core"
	"github.com/spaghettifunk/vkexamples/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func TestImageLoaderExpandsAndFlips(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 1, 2))
	img.Set(0, 0, color.RGBA{255, 0, 0, 255})
	img.Set(0, 1, color.RGBA{0, 0, 255, 255})
	path := filepath.Join(t.TempDir(), "column.png")
	writePNG(t, path, img)

	res, err := (&ImageLoader{}).Load(path, metadata.ResourceTypeImage, nil)
	require.NoError(t, err)
	data := res.Data.(*metadata.ImageResourceData)
	assert.Equal(t, uint8(4), data.ChannelCount)
	assert.Equal(t, []byte{255, 0, 0, 255, 0, 0, 255, 255}, data.Pixels)
	assert.Equal(t, uint64(8), res.DataSize)

	res, err = (&ImageLoader{}).Load(path, metadata.ResourceTypeImage, &ImageResourceParams{FlipY: true})
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 255, 255, 255, 0, 0, 255}, res.Data.(*metadata.ImageResourceData).Pixels)
}

func TestImageLoaderGrayGetsAlpha(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 2, 1))
	img.SetGray(0, 0, color.Gray{Y: 10})
	img.SetGray(1, 0, color.Gray{Y: 200})
	path := filepath.Join(t.TempDir(), "gray.png")
	writePNG(t, path, img)

	res, err := (&ImageLoader{}).Load(path, metadata.ResourceTypeImage, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{10, 10, 10, 255, 200, 200, 200, 255}, res.Data.(*metadata.ImageResourceData).Pixels)
}

func TestShaderLoader(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.spv")
	require.NoError(t, os.WriteFile(good, []byte{0x03, 0x02, 0x23, 0x07, 0, 0, 1, 0}, 0o644))
	res, err := (&ShaderLoader{}).Load(good, metadata.ResourceTypeShader, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(8), res.DataSize)
	require.NoError(t, (&ShaderLoader{}).Unload(res))
	assert.Nil(t, res.Data)

	bad := filepath.Join(dir, "bad.spv")
	require.NoError(t, os.WriteFile(bad, []byte{1, 2, 3, 4}, 0o644))
	_, err = (&ShaderLoader{}).Load(bad, metadata.ResourceTypeShader, nil)
	assert.ErrorIs(t, err, core.ErrUnsupportedFormat)

	short := filepath.Join(dir, "short.spv")
	require.NoError(t, os.WriteFile(short, []byte{0x03, 0x02, 0x23}, 0o644))
	_, err = (&ShaderLoader{}).Load(short, metadata.ResourceTypeShader, nil)
	assert.ErrorIs(t, err, core.ErrUnsupportedFormat)
}

func TestModelLoaderRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.gltf")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	_, err := (&ModelLoader{}).Load(path, metadata.ResourceTypeModel, nil)
	assert.Error(t, err)

	_, err = (&ModelLoader{}).Load(filepath.Join(t.TempDir(), "missing.glb"), metadata.ResourceTypeModel, nil)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestBinaryLoaderLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "buffer.bin")
	require.NoError(t, os.WriteFile(path, []byte{1, 2, 3, 4, 5}, 0o644))

	res, err := (&BinaryLoader{}).Load(path, metadata.ResourceTypeBinary, &BinaryResourceParams{MaxSize: 5})
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4, 5}, res.Data)
	assert.Equal(t, uint64(5), res.DataSize)

	_, err = (&BinaryLoader{}).Load(path, metadata.ResourceTypeBinary, &BinaryResourceParams{MaxSize: 4})
	assert.Error(t, err)
}
