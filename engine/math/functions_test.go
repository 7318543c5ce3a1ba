package math

import (
	"encoding/binary"
	m "math"
	"testing"

	"github.com/stretchr/testify/assert"
)

const tol = float32(1e-5)

func TestMat4MulOrder(t *testing.T) {
	tr := NewMat4Translation(NewVec3(1, 2, 3))
	sc := NewMat4Scale(NewVec3(2, 2, 2))

	// scale first, then translate
	p := NewVec3(1, 1, 1).Transform(tr.Mul(sc))
	assert.True(t, p.Compare(NewVec3(3, 4, 5), tol), "got %v", p)

	// translate first, then scale
	p = NewVec3(1, 1, 1).Transform(sc.Mul(tr))
	assert.True(t, p.Compare(NewVec3(4, 6, 8), tol), "got %v", p)
}

func TestMat4IdentityIsNeutral(t *testing.T) {
	a := NewMat4TRS(NewVec3(1, -2, 3), NewQuatFromAxisAngle(NewVec3(0, 1, 0), DegToRad(30), true), NewVec3(1, 2, 3))
	assert.True(t, a.Mul(NewMat4Identity()).Compare(a, tol))
	assert.True(t, NewMat4Identity().Mul(a).Compare(a, tol))
}

func TestQuaternionToMat4(t *testing.T) {
	q := NewQuatFromAxisAngle(NewVec3(0, 0, 1), DegToRad(90), true)
	p := NewVec3(1, 0, 0).Transform(q.ToMat4())
	assert.True(t, p.Compare(NewVec3(0, 1, 0), tol), "got %v", p)

	// zero quaternion behaves like identity
	assert.True(t, Quaternion{}.ToMat4().Compare(NewMat4Identity(), tol))
}

func TestTRSAppliesScaleRotationTranslation(t *testing.T) {
	q := NewQuatFromAxisAngle(NewVec3(0, 0, 1), DegToRad(90), true)
	mt := NewMat4TRS(NewVec3(10, 0, 0), q, NewVec3(2, 2, 2))
	p := NewVec3(1, 0, 0).Transform(mt)
	assert.True(t, p.Compare(NewVec3(10, 2, 0), tol), "got %v", p)
}

func TestColumnMajorImport(t *testing.T) {
	mt := NewMat4FromColumnMajor([16]float64{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 5, 6, 7, 1})
	assert.Equal(t, float32(5), mt.At(0, 3))
	assert.Equal(t, float32(6), mt.At(1, 3))
	assert.Equal(t, float32(7), mt.At(2, 3))
}

func TestNormalizeZeroVector(t *testing.T) {
	n := NewVec3Zero().Normalize()
	assert.False(t, m.IsNaN(float64(n.X)))
	assert.Equal(t, NewVec3Zero(), n)
	assert.InDelta(t, 1.0, NewVec3(3, 4, 0).Normalize().Length(), 1e-6)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, float32(1), Clamp(float32(1.5), 0, 1))
	assert.Equal(t, 0, Clamp(-3, 0, 10))
	assert.Equal(t, 7, Clamp(7, 0, 10))
}

func TestPacking(t *testing.T) {
	b := NewMat4Translation(NewVec3(1, 2, 3)).Bytes()
	assert.Len(t, b, Mat4Size)
	assert.Equal(t, m.Float32bits(1), binary.LittleEndian.Uint32(b[48:]))

	vb := AppendVertices(nil, []Vertex3D{{Position: NewVec3(1, 2, 3)}, {}})
	assert.Len(t, vb, 2*Vertex3DSize)

	ib := AppendIndices(nil, []uint32{7, 70000})
	assert.Equal(t, uint32(70000), binary.LittleEndian.Uint32(ib[4:]))
}
