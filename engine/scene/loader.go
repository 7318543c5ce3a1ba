package scene

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	vk "github.com/goki/vulkan"
	"github.com/qmuntal/gltf"
	"github.com/spaghettifunk/vkexamples/engine/core"
	"github.com/spaghettifunk/vkexamples/engine/math"
	"github.com/spaghettifunk/vkexamples/engine/renderer"
	"github.com/spaghettifunk/vkexamples/engine/renderer/metadata"
)

type Options struct {
	// Layout the per image descriptor sets are allocated against. When set,
	// untextured primitives bind a white fallback set.
	DescriptorSetLayout *metadata.DescriptorSetLayout
	// Format of the uploaded textures. Defaults to vk.FormatR8g8b8a8Unorm.
	TextureFormat vk.Format
}

type builder struct {
	ctx    context.Context
	device renderer.GraphicsDevice
	source *Document
	doc    *gltf.Document
	path   string
	dir    string
	opts   Options
	model  *Model

	// glTF node index -> true while the node is loaded, to catch cycles and
	// nodes with more than one parent.
	visited map[int]bool
}

func (b *builder) parseError(format string, args ...interface{}) error {
	return &core.ParseError{Path: b.path, Err: fmt.Errorf(format, args...)}
}

// Load parses a .gltf or .glb file and uploads it to device. Relative image
// uris resolve against the directory of path.
func Load(ctx context.Context, device renderer.GraphicsDevice, path string, opts Options) (*Model, error) {
	doc, err := Open(path)
	if err != nil {
		core.LogError("failed to parse %s: %v", path, err)
		return nil, &core.ParseError{Path: path, Err: err}
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return load(ctx, device, doc, path, filepath.Dir(path), name, opts)
}

// LoadDocument builds a model from an already parsed document. dir is used
// to resolve relative image uris.
func LoadDocument(ctx context.Context, device renderer.GraphicsDevice, doc *Document, dir string, opts Options) (*Model, error) {
	name := "document"
	if doc != nil && doc.Document != nil && len(doc.Scenes) > 0 && doc.Scenes[0].Name != "" {
		name = doc.Scenes[0].Name
	}
	return load(ctx, device, doc, "", dir, name, opts)
}

func load(ctx context.Context, device renderer.GraphicsDevice, doc *Document, path, dir, name string, opts Options) (*Model, error) {
	if doc == nil || doc.Document == nil {
		return nil, &core.ParseError{Path: path, Err: fmt.Errorf("no document")}
	}
	if opts.TextureFormat == vk.FormatUndefined {
		opts.TextureFormat = vk.FormatR8g8b8a8Unorm
	}

	b := &builder{
		ctx:     ctx,
		device:  device,
		source:  doc,
		doc:     doc.Document,
		path:    path,
		dir:     dir,
		opts:    opts,
		model:   newModel(name, device),
		visited: make(map[int]bool),
	}

	stages := []struct {
		name string
		run  func() error
	}{
		{"images", b.loadImages},
		{"materials", b.loadMaterials},
		{"textures", b.loadTextures},
		{"nodes", b.loadNodes},
		{"fallback", b.loadFallback},
		{"upload", b.upload},
	}
	for _, stage := range stages {
		if err := ctx.Err(); err != nil {
			b.model.Destroy()
			return nil, err
		}
		if err := stage.run(); err != nil {
			core.LogError("model %s: %s stage failed: %v", name, stage.name, err)
			b.model.Destroy()
			return nil, err
		}
		core.LogDebug("model %s: %s stage done", name, stage.name)
	}

	core.LogInfo("model %s (%s) loaded: %d nodes, %d vertices, %d indices, %d images",
		name, b.model.id, len(b.model.nodes), len(b.model.vertices), len(b.model.indices), len(b.model.images))
	return b.model, nil
}

func (b *builder) loadMaterials() error {
	for i, src := range b.doc.Materials {
		mat := Material{
			BaseColorFactor:       math.NewVec4One(),
			BaseColorTextureIndex: NoTexture,
		}
		if pbr := src.PBRMetallicRoughness; pbr != nil {
			if f := pbr.BaseColorFactor; f != nil {
				mat.BaseColorFactor = math.Vec4{
					X: math.Clamp(float32(f[0]), 0, 1),
					Y: math.Clamp(float32(f[1]), 0, 1),
					Z: math.Clamp(float32(f[2]), 0, 1),
					W: math.Clamp(float32(f[3]), 0, 1),
				}
			}
			if t := pbr.BaseColorTexture; t != nil {
				if t.Index < 0 || t.Index >= len(b.doc.Textures) {
					return b.parseError("material %d: texture %d out of range", i, t.Index)
				}
				mat.BaseColorTextureIndex = int32(t.Index)
			}
		}
		b.model.materials = append(b.model.materials, mat)
	}
	return nil
}

func (b *builder) loadTextures() error {
	for i, src := range b.doc.Textures {
		tex := Texture{ImageIndex: NoImage}
		if src.Source != nil {
			if *src.Source < 0 || *src.Source >= len(b.model.images) {
				return b.parseError("texture %d: image %d out of range", i, *src.Source)
			}
			tex.ImageIndex = int32(*src.Source)
		}
		b.model.textures = append(b.model.textures, tex)
	}
	return nil
}

// sceneRoots picks the node indices to start from: the default scene, the
// first scene, or every node nobody lists as a child.
func (b *builder) sceneRoots() ([]int, error) {
	doc := b.doc
	if len(doc.Scenes) > 0 {
		idx := 0
		if doc.Scene != nil {
			idx = *doc.Scene
		}
		if idx < 0 || idx >= len(doc.Scenes) {
			return nil, b.parseError("scene %d out of range", idx)
		}
		return doc.Scenes[idx].Nodes, nil
	}

	isChild := make([]bool, len(doc.Nodes))
	for _, n := range doc.Nodes {
		for _, c := range n.Children {
			if c >= 0 && c < len(isChild) {
				isChild[c] = true
			}
		}
	}
	var roots []int
	for i, child := range isChild {
		if !child {
			roots = append(roots, i)
		}
	}
	return roots, nil
}

func (b *builder) loadNodes() error {
	roots, err := b.sceneRoots()
	if err != nil {
		return err
	}
	for _, r := range roots {
		if err := b.loadNode(r, NoParent); err != nil {
			return err
		}
	}
	if err := b.model.Validate(); err != nil {
		return &core.ParseError{Path: b.path, Err: err}
	}
	return nil
}

// loadNode appends node index and its subtree in depth first pre-order.
// Children are loaded before the node's own mesh.
func (b *builder) loadNode(index int, parent NodeID) error {
	if index < 0 || index >= len(b.doc.Nodes) {
		return b.parseError("node %d out of range", index)
	}
	if b.visited[index] {
		return b.parseError("node %d is referenced more than once", index)
	}
	b.visited[index] = true
	if err := b.ctx.Err(); err != nil {
		return err
	}

	src := b.doc.Nodes[index]
	m := b.model
	id := NodeID(len(m.nodes))
	m.nodes = append(m.nodes, Node{
		Name:   src.Name,
		Matrix: localMatrix(src, b.source.HasMatrix(index)),
		Parent: parent,
	})
	if parent == NoParent {
		m.roots = append(m.roots, id)
	} else {
		m.nodes[parent].Children = append(m.nodes[parent].Children, id)
	}

	for _, c := range src.Children {
		if err := b.loadNode(c, id); err != nil {
			return err
		}
	}

	if src.Mesh != nil {
		mesh, err := b.loadMesh(*src.Mesh)
		if err != nil {
			return err
		}
		m.nodes[id].Mesh = mesh
	}
	return nil
}

// localMatrix returns the matrix of n when the node declares one, T * R * S
// otherwise. An all zero scale is treated as unset.
func localMatrix(n *gltf.Node, hasMatrix bool) math.Mat4 {
	if hasMatrix {
		return math.NewMat4FromColumnMajor(n.Matrix)
	}

	t := math.NewVec3(float32(n.Translation[0]), float32(n.Translation[1]), float32(n.Translation[2]))
	r := math.Quaternion{
		X: float32(n.Rotation[0]),
		Y: float32(n.Rotation[1]),
		Z: float32(n.Rotation[2]),
		W: float32(n.Rotation[3]),
	}
	s := math.NewVec3One()
	if n.Scale != [3]float64{} {
		s = math.NewVec3(float32(n.Scale[0]), float32(n.Scale[1]), float32(n.Scale[2]))
	}
	return math.NewMat4TRS(t, r, s)
}

func (b *builder) loadMesh(index int) (Mesh, error) {
	if index < 0 || index >= len(b.doc.Meshes) {
		return Mesh{}, b.parseError("mesh %d out of range", index)
	}
	var mesh Mesh
	for i, prim := range b.doc.Meshes[index].Primitives {
		p, err := b.loadPrimitive(prim)
		if err != nil {
			return Mesh{}, fmt.Errorf("mesh %d primitive %d: %w", index, i, err)
		}
		mesh.Primitives = append(mesh.Primitives, p)
	}
	return mesh, nil
}

func (b *builder) loadPrimitive(prim *gltf.Primitive) (Primitive, error) {
	m := b.model
	firstIndex := uint32(len(m.indices))
	vertexStart := uint32(len(m.vertices))

	posIndex, ok := prim.Attributes[gltf.POSITION]
	if !ok {
		return Primitive{}, &core.UnsupportedFormatError{What: "primitive", Value: "missing POSITION attribute"}
	}
	positions, err := b.readVec3(posIndex, gltf.POSITION)
	if err != nil {
		return Primitive{}, err
	}

	var normals []math.Vec3
	if idx, ok := prim.Attributes[gltf.NORMAL]; ok {
		if normals, err = b.readVec3(idx, gltf.NORMAL); err != nil {
			return Primitive{}, err
		}
		if len(normals) != len(positions) {
			return Primitive{}, b.parseError("%d normals for %d positions", len(normals), len(positions))
		}
	}
	var texcoords []math.Vec2
	if idx, ok := prim.Attributes[gltf.TEXCOORD_0]; ok {
		if texcoords, err = b.readVec2(idx, gltf.TEXCOORD_0); err != nil {
			return Primitive{}, err
		}
		if len(texcoords) != len(positions) {
			return Primitive{}, b.parseError("%d texcoords for %d positions", len(texcoords), len(positions))
		}
	}

	for i, pos := range positions {
		v := math.Vertex3D{Position: pos, Colour: math.NewVec4One()}
		if normals != nil {
			v.Normal = normals[i].Normalize()
		}
		if texcoords != nil {
			v.Texcoord = texcoords[i]
		}
		m.vertices = append(m.vertices, v)
	}

	if prim.Indices != nil {
		indices, err := b.readIndices(*prim.Indices)
		if err != nil {
			return Primitive{}, err
		}
		for _, idx := range indices {
			if int(idx) >= len(positions) {
				return Primitive{}, b.parseError("index %d out of range for %d vertices", idx, len(positions))
			}
			m.indices = append(m.indices, idx+vertexStart)
		}
	} else {
		for i := range positions {
			m.indices = append(m.indices, vertexStart+uint32(i))
		}
	}

	material := NoMaterial
	if prim.Material != nil {
		if *prim.Material < 0 || *prim.Material >= len(m.materials) {
			return Primitive{}, b.parseError("material %d out of range", *prim.Material)
		}
		material = int32(*prim.Material)
	}

	return Primitive{
		FirstIndex: firstIndex,
		IndexCount: uint32(len(m.indices)) - firstIndex,
		Material:   material,
	}, nil
}
