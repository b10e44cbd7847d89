// Package vision defines the contracts for the external model collaborators:
// object detection, fallback classification, visual matching, barcode
// scanning, OCR and image cropping. The pipeline core only ever sees these
// interfaces; the model backends live in subpackages.
package vision

import "context"

// Detection is one region emitted by the object detector.
type Detection struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
	// Box edges in image pixel coordinates: left, top, right, bottom.
	Box [4]float64 `json:"box"`
}

// ImageSize is the pixel dimensions of the analyzed image.
type ImageSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Probabilities holds the fallback classifier's per-category confidence.
type Probabilities struct {
	Product float64 `json:"product"`
	Tag     float64 `json:"tag"`
}

// TextFragment is one piece of text recognized by OCR.
type TextFragment struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// Detector locates labeled regions in a shelf image given a text prompt.
type Detector interface {
	Detect(ctx context.Context, imagePath, prompt string, threshold float64) ([]Detection, ImageSize, error)
}

// Classifier decides whether a cropped region shows a product or a tag.
// The returned label is "product" or "tag".
type Classifier interface {
	Classify(ctx context.Context, imagePath string) (string, Probabilities, error)
}

// Matcher compares a candidate crop against a reference product image.
// The match threshold (0.7) is owned by the implementation.
type Matcher interface {
	Match(ctx context.Context, refPath, candPath string) (bool, float64, error)
}

// BarcodeScanner extracts EAN-13 codes from a tag crop. An empty slice
// means no barcode symbology was readable.
type BarcodeScanner interface {
	Extract(ctx context.Context, imagePath string) ([]string, error)
}

// OCRReader recognizes text fragments in a tag crop, used as the fallback
// when no barcode symbology is readable.
type OCRReader interface {
	ReadText(ctx context.Context, imagePath string) ([]TextFragment, error)
}

// Cropper writes the region of imagePath bounded by box to destDir and
// returns the written file's path.
type Cropper interface {
	Crop(ctx context.Context, imagePath string, box [4]float64, destDir, name string) (string, error)
}
