package lockon

import (
	"image"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdaptFiltersByConfidence(t *testing.T) {
	raw := []RawDetection{
		{X1: 0, Y1: 0, X2: 10, Y2: 10, Confidence: 0.5},
		{X1: 0, Y1: 0, X2: 20, Y2: 20, Confidence: 0.51},
		{X1: 0, Y1: 0, X2: 30, Y2: 30, Confidence: 0.2},
	}
	got := Adapt(raw, 0.5, 640, image.Pt(640, 640))
	want := CandidateSet{NewCandidate(10, 10, 0.51)}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Adapt() mismatch (-want +got):\n%s", diff)
	}
}

func TestAdaptNonUniformRemap(t *testing.T) {
	// 640x640 model input mapped onto 1920x1080 stream
	raw := []RawDetection{
		{X1: 100, Y1: 100, X2: 200, Y2: 200, Confidence: 0.9},
		{X1: 0, Y1: 0, X2: 1, Y2: 1, Confidence: 0.9},
	}
	got := Adapt(raw, 0.5, 640, image.Pt(1920, 1080))
	require.Len(t, got, 2)
	// x: 150 * 3 = 450; y: 150 * 1.6875 = 253.125 -> 253
	assert.Equal(t, NewPoint(450, 253), got[0].Center)
	// x: 0.5 * 3 = 1.5 -> 1; y: 0.5 * 1.6875 = 0.84375 -> 0
	assert.Equal(t, NewPoint(1, 0), got[1].Center)
}

func TestAdaptEmpty(t *testing.T) {
	got := Adapt(nil, 0.5, 640, image.Pt(1920, 1080))
	assert.NotNil(t, got)
	assert.Empty(t, got)

	got = Adapt([]RawDetection{{X2: 10, Y2: 10, Confidence: 0.9}}, 0.5, 0, image.Pt(1920, 1080))
	assert.Empty(t, got)
}

func TestAdaptWithOptionsNMS(t *testing.T) {
	raw := []RawDetection{
		{X1: 0, Y1: 0, X2: 100, Y2: 100, Confidence: 0.6},
		{X1: 5, Y1: 5, X2: 105, Y2: 105, Confidence: 0.9},
		{X1: 300, Y1: 300, X2: 340, Y2: 340, Confidence: 0.7},
	}
	got := AdaptWithOptions(raw, AdapterOptions{
		ConfThreshold: 0.5,
		InputSize:     640,
		Target:        image.Pt(640, 640),
		NMSIoU:        0.45,
	})
	want := CandidateSet{NewCandidate(55, 55, 0.9), NewCandidate(320, 320, 0.7)}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("AdaptWithOptions() mismatch (-want +got):\n%s", diff)
	}
}

func TestAdaptWithOptionsMaxDetections(t *testing.T) {
	raw := []RawDetection{
		{X1: 0, Y1: 0, X2: 10, Y2: 10, Confidence: 0.6},
		{X1: 0, Y1: 0, X2: 20, Y2: 20, Confidence: 0.9},
		{X1: 0, Y1: 0, X2: 30, Y2: 30, Confidence: 0.7},
		{X1: 0, Y1: 0, X2: 40, Y2: 40, Confidence: 0.8},
	}
	got := AdaptWithOptions(raw, AdapterOptions{
		ConfThreshold: 0.5,
		InputSize:     640,
		Target:        image.Pt(640, 640),
		MaxDetections: 2,
	})
	// Two most confident, input order preserved
	want := CandidateSet{NewCandidate(10, 10, 0.9), NewCandidate(20, 20, 0.8)}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("AdaptWithOptions() mismatch (-want +got):\n%s", diff)
	}
}

func TestAdaptWithOptionsClamp(t *testing.T) {
	raw := []RawDetection{
		{X1: 630, Y1: -40, X2: 700, Y2: -10, Confidence: 0.9},
	}
	got := AdaptWithOptions(raw, AdapterOptions{
		ConfThreshold: 0.5,
		InputSize:     640,
		Target:        image.Pt(640, 480),
		ClampToFrame:  true,
	})
	require.Len(t, got, 1)
	assert.Equal(t, NewPoint(639, 0), got[0].Center)
}
