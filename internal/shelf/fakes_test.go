package shelf

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/shelfvision/shelfscan/internal/vision"
)

// fakeClassifier returns a canned verdict per crop path.
type fakeClassifier struct {
	verdicts map[string]string
	err      error

	mu    sync.Mutex
	calls []string
}

func (f *fakeClassifier) Classify(ctx context.Context, imagePath string) (string, vision.Probabilities, error) {
	f.mu.Lock()
	f.calls = append(f.calls, imagePath)
	f.mu.Unlock()
	if f.err != nil {
		return "", vision.Probabilities{}, f.err
	}
	verdict := f.verdicts[imagePath]
	if verdict == "product" {
		return "product", vision.Probabilities{Product: 0.9, Tag: 0.1}, nil
	}
	return "tag", vision.Probabilities{Product: 0.1, Tag: 0.9}, nil
}

// fakeMatcher accepts the crop paths listed in matches.
type fakeMatcher struct {
	matches map[string]bool
	errors  map[string]error
}

func (f *fakeMatcher) Match(ctx context.Context, refPath, candPath string) (bool, float64, error) {
	if err := f.errors[candPath]; err != nil {
		return false, 0, err
	}
	if f.matches[candPath] {
		return true, 0.85, nil
	}
	return false, 0.3, nil
}

// fakeScanner returns canned EAN-13 reads per image path.
type fakeScanner struct {
	codes map[string][]string
	err   error
}

func (f *fakeScanner) Extract(ctx context.Context, imagePath string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.codes[imagePath], nil
}

// fakeOCR returns canned text fragments per image path.
type fakeOCR struct {
	fragments map[string][]vision.TextFragment
	err       error
}

func (f *fakeOCR) ReadText(ctx context.Context, imagePath string) ([]vision.TextFragment, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.fragments[imagePath], nil
}

// fakeCropper fabricates crop paths without touching the filesystem.
type fakeCropper struct{}

func (fakeCropper) Crop(ctx context.Context, imagePath string, box [4]float64, destDir, name string) (string, error) {
	return filepath.Join(destDir, name), nil
}

func newObject(index int, label string, box BoundingBox) *DetectedObject {
	return &DetectedObject{
		Index:    index,
		RawLabel: label,
		Score:    0.5,
		Box:      box,
		CropPath: fmt.Sprintf("crops/object_%03d.png", index),
		Class:    ClassFromLabel(label),
	}
}
