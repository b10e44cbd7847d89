package shelf

import (
	"context"
	"testing"

	"github.com/shelfvision/shelfscan/internal/vision"
)

func TestIngest(t *testing.T) {
	detections := []vision.Detection{
		{Label: "a product", Score: 0.9, Box: [4]float64{0, 0, 100, 100}},
		{Label: "a tag", Score: 0.8, Box: [4]float64{30, 110, 70, 130}},
		// Oversized: 900/1000 width exceeds the 0.8 ratio.
		{Label: "a shelf", Score: 0.7, Box: [4]float64{0, 0, 900, 500}},
	}
	size := vision.ImageSize{Width: 1000, Height: 800}

	objects, err := Ingest(context.Background(), detections, size, "shelf.jpeg", fakeCropper{}, DefaultIngestOptions())
	if err != nil {
		t.Fatal(err)
	}

	if len(objects) != 3 {
		t.Fatalf("Expected 3 objects, got %d", len(objects))
	}

	// Indexes are contiguous 1..N over all accepted detections,
	// filtered included.
	for i, obj := range objects {
		if obj.Index != i+1 {
			t.Errorf("objects[%d].Index = %d, want %d", i, obj.Index, i+1)
		}
		if obj.CropPath == "" {
			t.Errorf("Object %d has no crop path", obj.Index)
		}
	}

	if objects[0].Class != Product || objects[0].Filtered {
		t.Errorf("Object 1 = (%v, filtered=%v), want active Product", objects[0].Class, objects[0].Filtered)
	}
	if objects[1].Class != Tag || objects[1].Filtered {
		t.Errorf("Object 2 = (%v, filtered=%v), want active Tag", objects[1].Class, objects[1].Filtered)
	}
	if !objects[2].Filtered {
		t.Error("Oversized object 3 should be filtered")
	}
	if objects[2].WidthRatio != 0.9 {
		t.Errorf("Object 3 width ratio = %v, want 0.9", objects[2].WidthRatio)
	}
}

func TestIngestMaxObjectsCap(t *testing.T) {
	detections := []vision.Detection{
		{Label: "a product", Score: 0.9, Box: [4]float64{0, 0, 10, 10}},
		{Label: "a tag", Score: 0.8, Box: [4]float64{0, 0, 10, 10}},
		{Label: "a tag", Score: 0.7, Box: [4]float64{0, 0, 10, 10}},
	}
	opts := DefaultIngestOptions()
	opts.MaxObjects = 2

	objects, err := Ingest(context.Background(), detections, vision.ImageSize{Width: 100, Height: 100}, "shelf.jpeg", fakeCropper{}, opts)
	if err != nil {
		t.Fatal(err)
	}
	if len(objects) != 2 {
		t.Errorf("Expected 2 objects under cap, got %d", len(objects))
	}
}

func TestIngestRejectsInvalidImageSize(t *testing.T) {
	_, err := Ingest(context.Background(), nil, vision.ImageSize{}, "shelf.jpeg", fakeCropper{}, DefaultIngestOptions())
	if err == nil {
		t.Error("Expected error for zero image size, got nil")
	}
}
