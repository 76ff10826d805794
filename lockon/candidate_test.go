package lockon

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestDecodeRows(t *testing.T) {
	data := []float32{
		10, 20, 30, 40, 0.9, 0,
		0, 0, 0, 0, 0, 0, // padding
		100, 110, 120, 130, 0.4, 2,
		1, 2, 3, // partial row
	}
	got := DecodeRows(data, 6)
	want := []RawDetection{
		{X1: 10, Y1: 20, X2: 30, Y2: 40, Confidence: float64(float32(0.9)), Class: 0},
		{X1: 100, Y1: 110, X2: 120, Y2: 130, Confidence: float64(float32(0.4)), Class: 2},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("DecodeRows() mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeRowsWithoutClass(t *testing.T) {
	got := DecodeRows([]float32{1, 2, 3, 4, 0.5}, 5)
	assert.Equal(t, []RawDetection{{X1: 1, Y1: 2, X2: 3, Y2: 4, Confidence: 0.5}}, got)
	assert.Nil(t, DecodeRows([]float32{1, 2, 3, 4}, 4))
}

func TestCandidateSetCenters(t *testing.T) {
	set := CandidateSet{NewCandidate(1, 2, 0.5), NewCandidate(3, 4, 0.6)}
	assert.Equal(t, []Point{NewPoint(1, 2), NewPoint(3, 4)}, set.Centers())
}
