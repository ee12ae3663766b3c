package tracking

import (
	"image"
	"math"

	"github.com/LdDl/algo-plugin-go/plugin"
)

// Rectangle is axis aligned box given by top-left corner and size
type Rectangle struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// NewRect creates rectangle from top-left corner and size
func NewRect(x, y, width, height float64) Rectangle {
	return Rectangle{
		X:      x,
		Y:      y,
		Width:  width,
		Height: height,
	}
}

// NewRectFrom converts image.Rectangle
func NewRectFrom(rect image.Rectangle) Rectangle {
	return Rectangle{
		X:      float64(rect.Min.X),
		Y:      float64(rect.Min.Y),
		Width:  float64(rect.Dx()),
		Height: float64(rect.Dy()),
	}
}

// RectFromObject reads x, y, w, h convention of object's rect. ok is false for malformed rects
func RectFromObject(obj *plugin.AlgoObject) (Rectangle, bool) {
	x, y, w, h, ok := obj.Bounds()
	if !ok || w <= 0 || h <= 0 {
		return Rectangle{}, false
	}
	return NewRect(float64(x), float64(y), float64(w), float64(h)), true
}

// Center returns center of the rectangle
func (r Rectangle) Center() Point {
	return Point{
		X: r.X + r.Width/2.0,
		Y: r.Y + r.Height/2.0,
	}
}

// Diagonal returns length of the rectangle's diagonal
func (r Rectangle) Diagonal() float64 {
	return math.Sqrt(r.Width*r.Width + r.Height*r.Height)
}

// Area returns width*height
func (r Rectangle) Area() float64 {
	return r.Width * r.Height
}

// centeredRect builds rectangle of given size around center
func centeredRect(center Point, width, height float64) Rectangle {
	return Rectangle{
		X:      center.X - width/2.0,
		Y:      center.Y - height/2.0,
		Width:  width,
		Height: height,
	}
}

type Point struct {
	X float64
	Y float64
}

func NewPoint(x, y float64) Point {
	return Point{
		X: x,
		Y: y,
	}
}

func euclideanDistance(p1, p2 Point) float64 {
	return math.Hypot(p1.X-p2.X, p1.Y-p2.Y)
}

// IoU calculates Intersection over Union between two rectangles.
func IoU(r1, r2 Rectangle) float64 {
	xA := math.Max(r1.X, r2.X)
	yA := math.Max(r1.Y, r2.Y)
	xB := math.Min(r1.X+r1.Width, r2.X+r2.Width)
	yB := math.Min(r1.Y+r1.Height, r2.Y+r2.Height)

	interArea := math.Max(0, xB-xA) * math.Max(0, yB-yA)
	if interArea == 0 {
		return 0.0
	}
	union := r1.Area() + r2.Area() - interArea
	if union <= 0 {
		return 0.0
	}
	return interArea / union
}
