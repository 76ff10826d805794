package lockon

import (
	"image"
	"math"
)

// Point is a pixel position in the stream's native coordinate space.
type Point struct {
	X int
	Y int
}

func NewPoint(x, y int) Point {
	return Point{
		X: x,
		Y: y,
	}
}

func NewPointFrom(point image.Point) Point {
	return Point{
		X: point.X,
		Y: point.Y,
	}
}

// Sub returns vector p - other
func (p Point) Sub(other Point) Point {
	return Point{X: p.X - other.X, Y: p.Y - other.Y}
}

// DistanceSq returns squared Euclidean distance between two points
func (p Point) DistanceSq(other Point) int {
	dx := p.X - other.X
	dy := p.Y - other.Y
	return dx*dx + dy*dy
}

// Rectangle is an axis-aligned box in floating point coordinates
type Rectangle struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

func NewRect(x, y, width, height float64) Rectangle {
	return Rectangle{
		X:      x,
		Y:      y,
		Width:  width,
		Height: height,
	}
}

// NewRectFromCorners builds rectangle from top-left (x1, y1) and bottom-right (x2, y2) corners
func NewRectFromCorners(x1, y1, x2, y2 float64) Rectangle {
	return Rectangle{
		X:      x1,
		Y:      y1,
		Width:  x2 - x1,
		Height: y2 - y1,
	}
}

// Scale returns rectangle with each axis scaled independently
func (r Rectangle) Scale(sx, sy float64) Rectangle {
	return Rectangle{
		X:      r.X * sx,
		Y:      r.Y * sy,
		Width:  r.Width * sx,
		Height: r.Height * sy,
	}
}

// Center returns midpoint of the rectangle truncated to integer pixels
func (r Rectangle) Center() Point {
	return Point{
		X: int(r.X + r.Width/2.0),
		Y: int(r.Y + r.Height/2.0),
	}
}

func euclideanDistance(p1, p2 Point) float64 {
	return math.Sqrt(float64(p1.DistanceSq(p2)))
}
