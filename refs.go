package hyperate

import (
	"math"
	"math/rand/v2"
)

// Ref correlates an outbound join or leave with the server's phx_reply.
type Ref int32

const (
	// keepAliveRef is carried by every keep-alive and is never allocated.
	keepAliveRef Ref = 0

	minRef Ref = 1
	maxRef Ref = math.MaxInt32 - 1
)

// refSource yields candidate refs. Candidates outside [minRef, maxRef] are rejected.
type refSource func() Ref

func randomRefSource() Ref {
	return minRef + Ref(rand.Int32N(int32(maxRef-minRef+1)))
}

// allocateRef draws candidates until one is in range and not in flight.
func allocateRef(next refSource, inFlight func(Ref) bool) Ref {
	for {
		r := next()
		if r < minRef || r > maxRef {
			continue
		}
		if inFlight(r) {
			continue
		}
		return r
	}
}
