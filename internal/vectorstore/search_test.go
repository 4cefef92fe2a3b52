package vectorstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestFuseRRFOrdersByReciprocalRankSum covers scenario S4 (spec.md §8) at the
// fuseRRF level: each point's fused score is the sum of its reciprocal ranks
// across the lists. Here a and b swap ranks between the dense and sparse
// lists, so both score 1/(k+1) + 1/(k+2) and tie.
func TestFuseRRFOrdersByReciprocalRankSum(t *testing.T) {
	dense := []SearchResult{
		{ID: "a", Score: 0.9},
		{ID: "b", Score: 0.8},
	}
	sparse := []SearchResult{
		{ID: "b", Score: 5},
		{ID: "a", Score: 3},
	}

	got := fuseRRF(2, dense, sparse)

	a := assert.New(t)
	a.Len(got, 2)

	wantA := 1.0/float64(rrfK+1) + 1.0/float64(rrfK+2)
	wantB := 1.0/float64(rrfK+2) + 1.0/float64(rrfK+1)
	a.InDelta(wantA, float64(got[0].Score), 1e-9)
	a.InDelta(wantB, float64(got[1].Score), 1e-9)
	a.Equal(wantA, wantB, "a and b swap rank between lists, so their fused scores tie")
}

func TestFuseRRFPrefersPointInBothLists(t *testing.T) {
	dense := []SearchResult{{ID: "a", Score: 0.9}, {ID: "b", Score: 0.1}}
	sparse := []SearchResult{{ID: "c", Score: 9}, {ID: "a", Score: 1}}

	got := fuseRRF(3, dense, sparse)

	assert.Equal(t, "a", got[0].ID, "a ranks in both lists so it accumulates the highest fused score")
}

func TestFuseRRFTruncatesToLimit(t *testing.T) {
	dense := []SearchResult{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	got := fuseRRF(1, dense)
	assert.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ID)
}

func TestFuseRRFKeepsFirstSeenPayload(t *testing.T) {
	dense := []SearchResult{{ID: "a", Payload: map[string]any{"source": "dense"}}}
	sparse := []SearchResult{{ID: "a", Payload: map[string]any{"source": "sparse"}}}

	got := fuseRRF(1, dense, sparse)
	assert.Equal(t, "dense", got[0].Payload["source"])
}
