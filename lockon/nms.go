package lockon

import "sort"

// IoU calculates Intersection over Union between two rectangles.
func IoU(r1, r2 Rectangle) float64 {
	xA := maxFloat64(r1.X, r2.X)
	yA := maxFloat64(r1.Y, r2.Y)
	xB := minFloat64(r1.X+r1.Width, r2.X+r2.Width)
	yB := minFloat64(r1.Y+r1.Height, r2.Y+r2.Height)

	interArea := maxFloat64(0, xB-xA) * maxFloat64(0, yB-yA)
	if interArea == 0 {
		return 0.0
	}

	r1Area := r1.Width * r1.Height
	r2Area := r2.Width * r2.Height

	return interArea / (r1Area + r2Area - interArea)
}

// suppressOverlaps runs class-agnostic greedy non-maximum suppression.
// Boxes are visited by descending confidence (stable) and any box whose IoU with an already kept box
// exceeds iouThreshold is dropped. Returned indices keep the original input order.
func suppressOverlaps(boxes []Rectangle, confidences []float64, iouThreshold float64) []int {
	order := make([]int, len(boxes))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return confidences[order[a]] > confidences[order[b]]
	})

	suppressed := make([]bool, len(boxes))
	for i, idx := range order {
		if suppressed[idx] {
			continue
		}
		for _, other := range order[i+1:] {
			if suppressed[other] {
				continue
			}
			if IoU(boxes[idx], boxes[other]) > iouThreshold {
				suppressed[other] = true
			}
		}
	}

	kept := make([]int, 0, len(boxes))
	for idx := range boxes {
		if !suppressed[idx] {
			kept = append(kept, idx)
		}
	}
	return kept
}

func maxFloat64(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minFloat64(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
