package lockon

import (
	"image"
	"sort"
)

// AdapterOptions configures how raw detector output is reduced to candidates.
type AdapterOptions struct {
	// Detections with confidence less or equal to this value are dropped
	ConfThreshold float64
	// Side of the square model input (e.g. 640)
	InputSize int
	// Native stream size to map boxes into
	Target image.Point
	// Keep at most this many highest-confidence candidates. Zero disables the cap
	MaxDetections int
	// Class-agnostic NMS IoU threshold. Zero disables suppression
	NMSIoU float64
	// Clamp centers into [0, W-1]x[0, H-1]
	ClampToFrame bool
}

// Adapt normalizes raw detector output into candidate set.
// Coordinates are scaled by Target.X/InputSize and Target.Y/InputSize independently per axis:
// the detector was fed a resized, possibly distorted, frame.
// Result keeps input order unless MaxDetections has to drop something.
func Adapt(raw []RawDetection, confThreshold float64, inputSize int, target image.Point) CandidateSet {
	return AdaptWithOptions(raw, AdapterOptions{
		ConfThreshold: confThreshold,
		InputSize:     inputSize,
		Target:        target,
	})
}

// AdaptWithOptions is Adapt with the optional NMS, detection cap and frame clamp steps.
func AdaptWithOptions(raw []RawDetection, opts AdapterOptions) CandidateSet {
	if len(raw) == 0 || opts.InputSize <= 0 {
		return CandidateSet{}
	}
	sx := float64(opts.Target.X) / float64(opts.InputSize)
	sy := float64(opts.Target.Y) / float64(opts.InputSize)

	boxes := make([]Rectangle, 0, len(raw))
	confidences := make([]float64, 0, len(raw))
	for _, det := range raw {
		if det.Confidence <= opts.ConfThreshold {
			continue
		}
		boxes = append(boxes, det.Box().Scale(sx, sy))
		confidences = append(confidences, det.Confidence)
	}

	kept := make([]int, len(boxes))
	for i := range kept {
		kept[i] = i
	}
	if opts.NMSIoU > 0 && len(boxes) > 1 {
		kept = suppressOverlaps(boxes, confidences, opts.NMSIoU)
	}
	if opts.MaxDetections > 0 && len(kept) > opts.MaxDetections {
		kept = topByConfidence(kept, confidences, opts.MaxDetections)
	}

	candidates := make(CandidateSet, 0, len(kept))
	for _, idx := range kept {
		center := boxes[idx].Center()
		if opts.ClampToFrame && opts.Target.X > 0 && opts.Target.Y > 0 {
			center.X = clampInt(center.X, 0, opts.Target.X-1)
			center.Y = clampInt(center.Y, 0, opts.Target.Y-1)
		}
		candidates = append(candidates, Candidate{
			Center:     center,
			Confidence: confidences[idx],
		})
	}
	return candidates
}

// topByConfidence keeps n indices with highest confidence, preserving their relative input order
func topByConfidence(indices []int, confidences []float64, n int) []int {
	ranked := make([]int, len(indices))
	copy(ranked, indices)
	sort.SliceStable(ranked, func(a, b int) bool {
		return confidences[ranked[a]] > confidences[ranked[b]]
	})
	ranked = ranked[:n]
	sort.Ints(ranked)
	return ranked
}
