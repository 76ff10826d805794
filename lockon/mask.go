package lockon

// MaskRegions reduces a binary mask (row-major, non-zero means set) to one detection per 8-connected region.
// Box spans the region's pixels with exclusive right and bottom edges, confidence is 1.
// Regions smaller than minPixels are dropped. Output follows row-major order of each region's first pixel.
func MaskRegions(mask []byte, width, height, minPixels int) []RawDetection {
	total := width * height
	if width <= 0 || height <= 0 || len(mask) < total {
		return nil
	}
	visited := make([]bool, total)
	stack := make([]int, 0, 64)
	regions := []RawDetection{}
	for start := 0; start < total; start++ {
		if mask[start] == 0 || visited[start] {
			continue
		}
		visited[start] = true
		stack = append(stack[:0], start)
		minX, minY := start%width, start/width
		maxX, maxY := minX, minY
		pixels := 0
		for len(stack) > 0 {
			idx := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			pixels++
			x, y := idx%width, idx/width
			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			if y > maxY {
				maxY = y
			}
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx, ny := x+dx, y+dy
					if nx < 0 || ny < 0 || nx >= width || ny >= height {
						continue
					}
					next := ny*width + nx
					if mask[next] == 0 || visited[next] {
						continue
					}
					visited[next] = true
					stack = append(stack, next)
				}
			}
		}
		if pixels < minPixels {
			continue
		}
		regions = append(regions, RawDetection{
			X1:         float64(minX),
			Y1:         float64(minY),
			X2:         float64(maxX + 1),
			Y2:         float64(maxY + 1),
			Confidence: 1,
		})
	}
	return regions
}
