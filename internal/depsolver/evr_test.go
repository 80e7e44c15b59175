package depsolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEVRCompareHighestWins(t *testing.T) {
	lo := EVR{Epoch: "1", Version: "10", Release: "200"}
	hi := EVR{Epoch: "1", Version: "100", Release: "200"}
	assert.Equal(t, -1, lo.Compare(hi))
	assert.Equal(t, 1, hi.Compare(lo))
	assert.Equal(t, 0, hi.Compare(hi))
}

func TestEVRCompareEpochDominates(t *testing.T) {
	lowEpoch := EVR{Epoch: "0", Version: "999", Release: "1"}
	highEpoch := EVR{Epoch: "1", Version: "1", Release: "1"}
	assert.Equal(t, -1, lowEpoch.Compare(highEpoch))
}

func TestRpmvercmpTilde(t *testing.T) {
	assert.Equal(t, -1, rpmvercmp("1.0~rc1", "1.0"))
	assert.Equal(t, 1, rpmvercmp("1.0", "1.0~rc1"))
	assert.Equal(t, -1, rpmvercmp("1.0~rc1", "1.0~rc2"))
}

func TestRpmvercmpCaret(t *testing.T) {
	assert.Equal(t, 1, rpmvercmp("1.0^git1", "1.0"))
	assert.Equal(t, -1, rpmvercmp("1.0", "1.0^git1"))
}

func TestRpmvercmpNumericSegments(t *testing.T) {
	assert.Equal(t, 1, rpmvercmp("10a", "9a"))
	assert.Equal(t, 1, rpmvercmp("1.0.1", "1.0.0"))
	assert.Equal(t, 0, rpmvercmp("1.0.0", "1.0.0"))
}
