package shelf

import "strings"

// Class is the resolved semantic category of a detected region.
type Class int

const (
	// Unresolved means neither the detector label nor the fallback
	// classifier committed the region to a category.
	Unresolved Class = iota
	Product
	Tag
)

// String returns the lowercase category name used in result records.
func (c Class) String() string {
	switch c {
	case Product:
		return "product"
	case Tag:
		return "tag"
	default:
		return "unresolved"
	}
}

// ClassFromLabel derives an initial class from a free-text detector label
// using case-insensitive substring matching.
func ClassFromLabel(label string) Class {
	lower := strings.ToLower(label)
	if strings.Contains(lower, "product") {
		return Product
	}
	if strings.Contains(lower, "tag") {
		return Tag
	}
	return Unresolved
}

// BoundingBox is an axis-aligned box in image pixel coordinates.
type BoundingBox struct {
	Left   float64
	Top    float64
	Right  float64
	Bottom float64
}

func (b BoundingBox) Width() float64 {
	return b.Right - b.Left
}

func (b BoundingBox) Height() float64 {
	return b.Bottom - b.Top
}

// BottomCenter returns the midpoint of the box's bottom edge.
func (b BoundingBox) BottomCenter() (x, y float64) {
	return (b.Left + b.Right) / 2, b.Bottom
}

// TopCenter returns the midpoint of the box's top edge.
func (b BoundingBox) TopCenter() (x, y float64) {
	return (b.Left + b.Right) / 2, b.Top
}

// DetectedObject is one detected shelf region. Index, RawLabel, Score, Box
// and the filtering fields are fixed at ingest time; Class starts from the
// label rule and may be promoted by the classification resolver.
type DetectedObject struct {
	Index       int // 1-based, stable across all derived lists
	RawLabel    string
	Score       float64
	Box         BoundingBox
	CropPath    string
	Filtered    bool
	WidthRatio  float64
	HeightRatio float64
	Class       Class
}
