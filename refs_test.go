package hyperate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sequenceSource replays refs in order, then repeats the last one.
func sequenceSource(refs ...Ref) refSource {
	i := 0
	return func() Ref {
		r := refs[i]
		if i < len(refs)-1 {
			i++
		}
		return r
	}
}

func TestAllocateRef_SkipsKeepAliveRef(t *testing.T) {
	r := allocateRef(sequenceSource(0, 0, 7), func(Ref) bool { return false })
	assert.Equal(t, Ref(7), r)
}

func TestAllocateRef_SkipsOutOfRange(t *testing.T) {
	r := allocateRef(sequenceSource(-5, maxRef+1, maxRef), func(Ref) bool { return false })
	assert.Equal(t, maxRef, r)
}

func TestAllocateRef_SkipsInFlight(t *testing.T) {
	inFlight := map[Ref]bool{3: true, 4: true}
	r := allocateRef(sequenceSource(3, 4, 3, 5), func(r Ref) bool { return inFlight[r] })
	assert.Equal(t, Ref(5), r)
}

func TestRandomRefSource_InRange(t *testing.T) {
	for i := 0; i < 10000; i++ {
		r := randomRefSource()
		require.GreaterOrEqual(t, r, minRef)
		require.LessOrEqual(t, r, maxRef)
	}
}
