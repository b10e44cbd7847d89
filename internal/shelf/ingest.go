package shelf

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shelfvision/shelfscan/internal/vision"
)

// IngestOptions controls how raw detections become DetectedObjects.
type IngestOptions struct {
	// MaxObjects caps how many detections are accepted, 0 means no cap.
	MaxObjects int
	// A detection whose box exceeds either ratio of the image is marked
	// Filtered and excluded from downstream reasoning.
	MaxWidthRatio  float64
	MaxHeightRatio float64
	// CropDir receives one crop image per accepted detection.
	CropDir string
}

// DefaultIngestOptions returns the ratios used by the reference pipeline.
func DefaultIngestOptions() IngestOptions {
	return IngestOptions{
		MaxWidthRatio:  0.8,
		MaxHeightRatio: 0.8,
		CropDir:        "output/cropped",
	}
}

// Ingest converts detector output into DetectedObjects. Indexes are assigned
// 1..N in detection order over all accepted detections, filtered or not, and
// never reused. Oversized boxes are recorded but marked Filtered. Each
// accepted detection gets a crop written for the downstream collaborators.
func Ingest(ctx context.Context, detections []vision.Detection, size vision.ImageSize, imagePath string, cropper vision.Cropper, opts IngestOptions) ([]*DetectedObject, error) {
	if size.Width <= 0 || size.Height <= 0 {
		return nil, fmt.Errorf("invalid image size %dx%d", size.Width, size.Height)
	}

	accepted := detections
	if opts.MaxObjects > 0 && len(accepted) > opts.MaxObjects {
		slog.Info("Capping detections", "total", len(detections), "max", opts.MaxObjects)
		accepted = accepted[:opts.MaxObjects]
	}

	objects := make([]*DetectedObject, 0, len(accepted))
	filteredCount := 0
	for i, det := range accepted {
		box := BoundingBox{Left: det.Box[0], Top: det.Box[1], Right: det.Box[2], Bottom: det.Box[3]}
		widthRatio := box.Width() / float64(size.Width)
		heightRatio := box.Height() / float64(size.Height)
		filtered := widthRatio > opts.MaxWidthRatio || heightRatio > opts.MaxHeightRatio

		obj := &DetectedObject{
			Index:       i + 1,
			RawLabel:    det.Label,
			Score:       det.Score,
			Box:         box,
			Filtered:    filtered,
			WidthRatio:  widthRatio,
			HeightRatio: heightRatio,
			Class:       ClassFromLabel(det.Label),
		}

		prefix := ""
		if filtered {
			prefix = "filtered_"
			filteredCount++
			slog.Info("Excluding oversized detection",
				"index", obj.Index,
				"width_ratio", fmt.Sprintf("%.2f", widthRatio),
				"height_ratio", fmt.Sprintf("%.2f", heightRatio))
		}

		name := fmt.Sprintf("%sobject_%03d_%s_%.2f.png", prefix, obj.Index, det.Label, det.Score)
		cropPath, err := cropper.Crop(ctx, imagePath, det.Box, opts.CropDir, name)
		if err != nil {
			return nil, fmt.Errorf("failed to crop detection %d: %w", obj.Index, err)
		}
		obj.CropPath = cropPath

		objects = append(objects, obj)
	}

	slog.Info("Ingested detections", "total", len(objects), "active", len(objects)-filteredCount, "filtered", filteredCount)
	return objects, nil
}
