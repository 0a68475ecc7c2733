package bind_group_provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProvider_StreamsAndIndices(t *testing.T) {
	p := NewBindGroupProvider("shape", WithStream("aPos", []float32{0, 0, 0}))
	p.SetStream("aNor", []float32{0, 0, 1})
	p.SetIndices([]uint32{0, 0, 0})

	assert.Equal(t, "shape", p.Label())
	assert.ElementsMatch(t, []string{"aPos", "aNor"}, p.StreamNames())
	assert.Equal(t, []float32{0, 0, 1}, p.Stream("aNor"))
	assert.Nil(t, p.Stream("aTex"))
	assert.Equal(t, 3, p.IndexCount())
}

func TestProvider_ReleaseClearsCPUData(t *testing.T) {
	p := NewBindGroupProvider("shape", WithIndices([]uint32{0, 1, 2}))
	p.SetStream("aPos", make([]float32, 9))

	p.Release()

	assert.Empty(t, p.StreamNames())
	assert.Nil(t, p.Indices())
	assert.Equal(t, 0, p.IndexCount())
	assert.Nil(t, p.BindGroup())
}
