package scene

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/qmuntal/gltf"
)

const (
	glbMagic     = 0x46546c67
	glbChunkJSON = 0x4e4f534a
)

// Document is a parsed glTF document plus which nodes spelled out a
// matrix. The decoder fills Node.Matrix with the identity when the key is
// absent, which is indistinguishable from an explicit identity.
type Document struct {
	*gltf.Document

	// explicitMatrix is nil for documents built in memory.
	explicitMatrix map[int]bool
}

// NewDocument wraps an in-memory document. A node counts as having a matrix
// when it is neither the identity nor all zeros.
func NewDocument(doc *gltf.Document) *Document {
	return &Document{Document: doc}
}

// Open decodes a .gltf or .glb file. External buffers resolve against the
// directory of path.
func Open(path string) (*Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	doc := new(gltf.Document)
	if err := gltf.NewDecoderFS(bytes.NewReader(raw), os.DirFS(filepath.Dir(path))).Decode(doc); err != nil {
		return nil, err
	}
	explicit, err := matrixKeys(raw)
	if err != nil {
		return nil, err
	}
	return &Document{Document: doc, explicitMatrix: explicit}, nil
}

// HasMatrix reports whether node i is placed by its matrix rather than by
// translation, rotation and scale.
func (d *Document) HasMatrix(i int) bool {
	if d.explicitMatrix != nil {
		return d.explicitMatrix[i]
	}
	if i < 0 || i >= len(d.Nodes) || d.Nodes[i] == nil {
		return false
	}
	m := d.Nodes[i].Matrix
	return m != gltf.DefaultMatrix && m != [16]float64{}
}

// matrixKeys returns the nodes whose JSON object carries a "matrix" member.
// For .glb input the JSON chunk is read out of the container first.
func matrixKeys(raw []byte) (map[int]bool, error) {
	if len(raw) >= 4 && binary.LittleEndian.Uint32(raw) == glbMagic {
		if len(raw) < 20 || binary.LittleEndian.Uint32(raw[16:]) != glbChunkJSON {
			return nil, fmt.Errorf("glb: missing json chunk")
		}
		size := uint64(binary.LittleEndian.Uint32(raw[12:]))
		if 20+size > uint64(len(raw)) {
			return nil, fmt.Errorf("glb: json chunk of %d bytes exceeds file", size)
		}
		raw = raw[20 : 20+size]
	}

	var nodes struct {
		Nodes []map[string]json.RawMessage `json:"nodes"`
	}
	if err := json.Unmarshal(raw, &nodes); err != nil {
		return nil, err
	}
	explicit := make(map[int]bool, len(nodes.Nodes))
	for i, n := range nodes.Nodes {
		if _, ok := n["matrix"]; ok {
			explicit[i] = true
		}
	}
	return explicit, nil
}
