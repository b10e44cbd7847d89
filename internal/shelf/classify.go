package shelf

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shelfvision/shelfscan/internal/vision"
)

// Resolver finalizes the class of each active detected object. The detector
// label decides first; objects it leaves unresolved go to the fallback
// visual classifier.
type Resolver struct {
	classifier  vision.Classifier
	concurrency int
}

// NewResolver creates a resolver backed by the given fallback classifier.
func NewResolver(classifier vision.Classifier, concurrency int) *Resolver {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Resolver{classifier: classifier, concurrency: concurrency}
}

// Resolve runs the fallback classifier over every active object still
// Unresolved after the label rule. The fallback can only promote an object
// to Product; a "tag" verdict leaves it Unresolved. Each object resolves
// independently, so the calls run concurrently with results written into
// per-object slots. A classifier failure is logged and leaves that one
// object Unresolved.
func (r *Resolver) Resolve(ctx context.Context, objects []*DetectedObject) {
	var pending []*DetectedObject
	for _, obj := range objects {
		if obj.Filtered || obj.Class != Unresolved {
			continue
		}
		pending = append(pending, obj)
	}

	if len(pending) == 0 {
		slog.Info("All active objects classified by detector labels")
		return
	}

	slog.Info("Classifying unresolved objects with fallback classifier", "count", len(pending))

	promoted := make([]bool, len(pending))

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, r.concurrency)
	for i, obj := range pending {
		wg.Add(1)
		go func(slot int, obj *DetectedObject) {
			defer wg.Done()
			semaphore <- struct{}{}        // Acquire
			defer func() { <-semaphore }() // Release

			label, probs, err := r.classifier.Classify(ctx, obj.CropPath)
			if err != nil {
				slog.Error("Fallback classification failed", "index", obj.Index, "err", err)
				return
			}
			slog.Info("Fallback classification",
				"index", obj.Index,
				"verdict", label,
				"product_prob", fmt.Sprintf("%.1f%%", probs.Product*100),
				"tag_prob", fmt.Sprintf("%.1f%%", probs.Tag*100))
			if label == "product" {
				promoted[slot] = true
			}
		}(i, obj)
	}
	wg.Wait()

	for i, obj := range pending {
		if promoted[i] {
			obj.Class = Product
		}
	}
}
