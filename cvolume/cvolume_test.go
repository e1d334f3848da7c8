package cvolume_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/audiocore/sink/cvolume"
)

func TestNewIdentity(t *testing.T) {
	v := cvolume.NewIdentity(2)
	assert.True(t, v.Valid(2))
	assert.True(t, v.IsNorm())
	assert.False(t, v.IsMuted())
}

func TestIsMutedRequiresEveryChannelZero(t *testing.T) {
	assert.True(t, cvolume.CVolume{0, 0}.IsMuted())
	assert.False(t, cvolume.CVolume{0, cvolume.Norm}.IsMuted())
	assert.False(t, cvolume.CVolume{}.IsMuted())
}

func TestEqualAndClone(t *testing.T) {
	v := cvolume.CVolume{1, 2, 3}
	c := v.Clone()
	assert.True(t, v.Equal(c))
	c[0] = 99
	assert.False(t, v.Equal(c))
	assert.Equal(t, uint32(1), v[0])
}

func TestMultiply(t *testing.T) {
	a := cvolume.CVolume{cvolume.Norm, cvolume.Norm / 2}
	b := cvolume.CVolume{cvolume.Norm / 2, cvolume.Norm}
	out := cvolume.Multiply(a, b)
	assert.Equal(t, cvolume.CVolume{cvolume.Norm / 2, cvolume.Norm / 2}, out)
}

func TestFactor(t *testing.T) {
	v := cvolume.CVolume{cvolume.Norm / 2}
	assert.InDelta(t, 0.5, v.Factor(0), 0.0001)
	assert.Equal(t, float64(0), v.Factor(-1))
	assert.Equal(t, float64(0), v.Factor(5))
}

func TestDecibelRoundTrip(t *testing.T) {
	v := cvolume.FromDecibel(-6)
	assert.InDelta(t, -6, cvolume.ToDecibel(v), 0.01)

	assert.Equal(t, cvolume.Muted, cvolume.FromDecibel(math.Inf(-1)))
	assert.True(t, math.IsInf(cvolume.ToDecibel(cvolume.Muted), -1))

	assert.Equal(t, cvolume.Norm, cvolume.FromDecibel(0))
}
