package common

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuatToMat4_IdentityWithTranslation(t *testing.T) {
	m := QuatToMat4(IdentityQuat(), [3]float32{1, 2, 3})

	assert.Equal(t, [4]float32{1, 0, 0, 0}, Column(m, 0))
	assert.Equal(t, [4]float32{0, 1, 0, 0}, Column(m, 1))
	assert.Equal(t, [4]float32{0, 0, 1, 0}, Column(m, 2))
	assert.Equal(t, [4]float32{1, 2, 3, 1}, Column(m, 3))
}

func TestQuatToMat4_QuarterTurnAboutZ(t *testing.T) {
	h := math32.Sqrt(0.5)
	m := QuatToMat4(Quat{W: h, Z: h}, [3]float32{})

	// x axis maps onto y
	p := MulPoint(m, [3]float32{1, 0, 0})
	assert.InDelta(t, 0, p[0], 1e-6)
	assert.InDelta(t, 1, p[1], 1e-6)
	assert.InDelta(t, 0, p[2], 1e-6)
	assert.InDelta(t, 1, p[3], 1e-6)
}

func TestInvert4_RigidRoundTrip(t *testing.T) {
	h := math32.Sqrt(0.5)
	m := QuatToMat4(Quat{W: h, X: h}, [3]float32{4, -2, 7})

	var inv, prod [16]float32
	require.True(t, Invert4(inv[:], m[:]))
	Mul4(prod[:], inv[:], m[:])

	id := IdentityMat4()
	for i := range prod {
		assert.InDelta(t, id[i], prod[i], 1e-5, "element %d", i)
	}
}

func TestInvert4_Singular(t *testing.T) {
	var zero, out [16]float32
	out[0] = 42

	assert.False(t, Invert4(out[:], zero[:]))
	assert.Equal(t, float32(42), out[0])
}

func TestMul4_Identity(t *testing.T) {
	m := QuatToMat4(Quat{W: 1}, [3]float32{9, 8, 7})
	id := IdentityMat4()

	var out [16]float32
	Mul4(out[:], id[:], m[:])
	assert.Equal(t, m, out)
}

func TestLookAt_EyeMapsToOrigin(t *testing.T) {
	var view [16]float32
	eye := [3]float32{0, 0, 5}
	LookAt(view[:], eye, [3]float32{}, [3]float32{0, 1, 0})

	p := MulPoint(view, eye)
	assert.InDelta(t, 0, p[0], 1e-6)
	assert.InDelta(t, 0, p[1], 1e-6)
	assert.InDelta(t, 0, p[2], 1e-6)
}

func TestCoalesce(t *testing.T) {
	assert.Equal(t, 3, Coalesce(0, 0, 3, 4))
	assert.Equal(t, "", Coalesce("", ""))
}

func TestSliceToBytes(t *testing.T) {
	assert.Nil(t, SliceToBytes([]float32{}))
	assert.Len(t, SliceToBytes([]uint32{1, 2, 3}), 12)
}

func TestFrustum_IntersectsSphere(t *testing.T) {
	var view, proj, viewProj [16]float32
	LookAt(view[:], [3]float32{0, 0, 5}, [3]float32{}, [3]float32{0, 1, 0})
	Perspective(proj[:], math32.Pi/2, 1, 0.1, 100)
	Mul4(viewProj[:], proj[:], view[:])
	f := ExtractFrustum(viewProj)

	tests := []struct {
		name   string
		center [3]float32
		radius float32
		want   bool
	}{
		{"at target", [3]float32{}, 1, true},
		{"behind the eye", [3]float32{0, 0, 10}, 1, false},
		{"far to the side", [3]float32{100, 0, 0}, 1, false},
		{"straddling the left plane", [3]float32{-5.5, 0, 0}, 1, true},
		{"past the far plane", [3]float32{0, 0, -200}, 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.IntersectsSphere(tt.center, tt.radius))
		})
	}
}
