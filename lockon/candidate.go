package lockon

// RawDetection is a single detector output row in model-input coordinate space.
// Extra columns beyond the box and confidence (class id, class scores) are not needed by the core.
type RawDetection struct {
	X1         float64
	Y1         float64
	X2         float64
	Y2         float64
	Confidence float64
	Class      int
}

// Box returns detection's bounding box
func (det RawDetection) Box() Rectangle {
	return NewRectFromCorners(det.X1, det.Y1, det.X2, det.Y2)
}

// Candidate is one detection reduced to a center point and confidence.
// Candidates are produced fresh every frame and never mutated.
type Candidate struct {
	Center     Point
	Confidence float64
}

func NewCandidate(x, y int, confidence float64) Candidate {
	return Candidate{
		Center:     Point{X: x, Y: y},
		Confidence: confidence,
	}
}

// CandidateSet is ordered sequence of candidates for one frame. It may be empty.
type CandidateSet []Candidate

// Centers returns candidates' centers in set order
func (set CandidateSet) Centers() []Point {
	centers := make([]Point, len(set))
	for i := range set {
		centers[i] = set[i].Center
	}
	return centers
}

// DecodeRows splits flat detector output into raw detections.
// Each row holds rowWidth values: x1, y1, x2, y2, confidence and (if present) class id, then anything else.
// Rows with non-positive confidence are padding and skipped. A trailing partial row is ignored.
func DecodeRows(data []float32, rowWidth int) []RawDetection {
	if rowWidth < 5 {
		return nil
	}
	detections := make([]RawDetection, 0, len(data)/rowWidth)
	for offset := 0; offset+rowWidth <= len(data); offset += rowWidth {
		row := data[offset : offset+rowWidth]
		if row[4] <= 0 {
			continue
		}
		det := RawDetection{
			X1:         float64(row[0]),
			Y1:         float64(row[1]),
			X2:         float64(row[2]),
			Y2:         float64(row[3]),
			Confidence: float64(row[4]),
		}
		if rowWidth > 5 {
			det.Class = int(row[5])
		}
		detections = append(detections, det)
	}
	return detections
}
