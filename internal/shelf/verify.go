package shelf

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shelfvision/shelfscan/internal/registry"
	"github.com/shelfvision/shelfscan/internal/vision"
)

// VerificationResult holds the outcome of a target product search.
type VerificationResult struct {
	// Requested reports whether a target search actually ran. It stays
	// false when no target was given or the target is unregistered.
	Requested bool
	// MatchedProducts are the product regions the visual matcher accepted.
	MatchedProducts []*DetectedObject
	// Outcomes maps object index to its verification verdict. A verified
	// pair stores the identical outcome under both the product's and the
	// tag's index.
	Outcomes map[int]Outcome
}

// IsMatched reports whether the product with the given index was accepted
// by the visual matcher.
func (r VerificationResult) IsMatched(index int) bool {
	for _, obj := range r.MatchedProducts {
		if obj.Index == index {
			return true
		}
	}
	return false
}

// Verifier runs the target product search: visual matching over the active
// products, then barcode verification through each match's paired tag.
type Verifier struct {
	matcher     vision.Matcher
	barcodes    *BarcodeVerifier
	reg         *registry.Registry
	concurrency int
}

// NewVerifier wires the visual matcher, the barcode verifier and the
// registry. Matcher calls run with the given concurrency.
func NewVerifier(matcher vision.Matcher, barcodes *BarcodeVerifier, reg *registry.Registry, concurrency int) *Verifier {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Verifier{matcher: matcher, barcodes: barcodes, reg: reg, concurrency: concurrency}
}

// VerifyTarget searches the active products for targetName and verifies each
// match through its paired tag's barcode. An unregistered target is a no-op,
// not an error. A matcher failure on one item degrades to "no match" for
// that item only.
func (v *Verifier) VerifyTarget(ctx context.Context, targetName string, objects []*DetectedObject, pairing PairingResult) VerificationResult {
	result := VerificationResult{Outcomes: make(map[int]Outcome)}
	if targetName == "" {
		return result
	}

	record, ok := v.reg.Lookup(targetName)
	if !ok {
		slog.Warn("Target product not registered, skipping verification", "name", targetName)
		return result
	}
	result.Requested = true

	var products []*DetectedObject
	for _, obj := range objects {
		if !obj.Filtered && obj.Class == Product {
			products = append(products, obj)
		}
	}

	slog.Info("Searching products for target", "target", targetName, "candidates", len(products))

	matched := make([]bool, len(products))
	var wg sync.WaitGroup
	semaphore := make(chan struct{}, v.concurrency)
	for i, obj := range products {
		wg.Add(1)
		go func(slot int, obj *DetectedObject) {
			defer wg.Done()
			semaphore <- struct{}{}        // Acquire
			defer func() { <-semaphore }() // Release

			isMatch, similarity, err := v.matcher.Match(ctx, record.ReferenceImagePath, obj.CropPath)
			if err != nil {
				slog.Error("Visual match failed, treating as no match", "index", obj.Index, "err", err)
				return
			}
			slog.Info("Visual match",
				"index", obj.Index,
				"match", isMatch,
				"similarity", fmt.Sprintf("%.3f", similarity))
			matched[slot] = isMatch
		}(i, obj)
	}
	wg.Wait()

	for i, obj := range products {
		if matched[i] {
			result.MatchedProducts = append(result.MatchedProducts, obj)
		}
	}
	slog.Info("Target search complete", "target", targetName, "matches", len(result.MatchedProducts))

	for _, product := range result.MatchedProducts {
		pair, ok := pairing.PairForProduct(product.Index)
		if !ok {
			slog.Info("Matched product has no paired tag", "product", product.Index)
			result.Outcomes[product.Index] = indeterminate(ReasonNoPairedTag, "")
			continue
		}

		slog.Info("Verifying paired tag", "product", product.Index, "tag", pair.Tag.Index)
		outcome := v.barcodes.Verify(ctx, pair.Tag.CropPath, targetName)

		// The product and its tag must report the identical verdict.
		result.Outcomes[product.Index] = outcome
		result.Outcomes[pair.Tag.Index] = outcome
	}

	return result
}
