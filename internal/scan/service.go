// Package scan orchestrates one full shelf-scan pipeline run: detection,
// class resolution, spatial pairing, target verification and result
// assembly.
package scan

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/shelfvision/shelfscan/internal/history"
	"github.com/shelfvision/shelfscan/internal/registry"
	"github.com/shelfvision/shelfscan/internal/results"
	"github.com/shelfvision/shelfscan/internal/shelf"
	"github.com/shelfvision/shelfscan/internal/vision"
)

// Collaborators are the external model capabilities a run consumes.
type Collaborators struct {
	Detector   vision.Detector
	Classifier vision.Classifier
	Matcher    vision.Matcher
	Barcodes   vision.BarcodeScanner
	OCR        vision.OCRReader
	Cropper    vision.Cropper
}

// Options configures one pipeline run.
type Options struct {
	ImagePath string
	// Prompt is the detector's text prompt.
	Prompt string
	// Threshold is the detector's score threshold.
	Threshold float64
	// Target names the registered product to search for; empty skips
	// verification.
	Target string
	// Output is the JSON artifact path; empty skips writing.
	Output string
	// Concurrency bounds the parallel classifier and matcher calls.
	Concurrency int

	Ingest shelf.IngestOptions

	HorizontalDistanceFactor float64
	MaxPairingDistance       float64
}

// DefaultOptions returns the reference pipeline's knobs.
func DefaultOptions() Options {
	return Options{
		Prompt:                   "a product. a tag.",
		Threshold:                0.18,
		Output:                   "output/results.json",
		Concurrency:              4,
		Ingest:                   shelf.DefaultIngestOptions(),
		HorizontalDistanceFactor: 1.0,
		MaxPairingDistance:       300,
	}
}

// Report is the full output of one run.
type Report struct {
	Records      []shelf.ResultRecord
	Objects      []*shelf.DetectedObject
	Pairing      shelf.PairingResult
	Verification shelf.VerificationResult
	StartedAt    time.Time
}

// Service owns the collaborators and the registry across runs. The registry
// must be fully populated before the first Run; runs only read it.
type Service struct {
	vision  Collaborators
	reg     *registry.Registry
	archive *history.Store
}

// NewService creates a scan service. The history store may be nil.
func NewService(collaborators Collaborators, reg *registry.Registry, archive *history.Store) *Service {
	return &Service{vision: collaborators, reg: reg, archive: archive}
}

// Run executes the pipeline over one shelf image. Input failures (missing
// image, detector error) abort the run and no JSON is written; registry
// gaps and per-item collaborator failures degrade per item instead.
func (s *Service) Run(ctx context.Context, opts Options) (*Report, error) {
	startedAt := time.Now()
	slog.Info("Analyzing shelf image", "image", opts.ImagePath, "target", opts.Target)

	if _, err := os.Stat(opts.ImagePath); err != nil {
		return nil, fmt.Errorf("cannot read input image: %w", err)
	}

	detections, size, err := s.vision.Detector.Detect(ctx, opts.ImagePath, opts.Prompt, opts.Threshold)
	if err != nil {
		return nil, fmt.Errorf("object detection failed: %w", err)
	}

	objects, err := shelf.Ingest(ctx, detections, size, opts.ImagePath, s.vision.Cropper, opts.Ingest)
	if err != nil {
		return nil, err
	}

	resolver := shelf.NewResolver(s.vision.Classifier, opts.Concurrency)
	resolver.Resolve(ctx, objects)

	pairer := shelf.NewPairer()
	if opts.HorizontalDistanceFactor > 0 {
		pairer.HorizontalDistanceFactor = opts.HorizontalDistanceFactor
	}
	if opts.MaxPairingDistance > 0 {
		pairer.MaxPairingDistance = opts.MaxPairingDistance
	}
	pairing := pairer.PairProductsAndTags(objects)

	barcodes := shelf.NewBarcodeVerifier(s.vision.Barcodes, s.vision.OCR, s.reg)
	verifier := shelf.NewVerifier(s.vision.Matcher, barcodes, s.reg, opts.Concurrency)
	verification := verifier.VerifyTarget(ctx, opts.Target, objects, pairing)

	records := shelf.Assemble(objects, pairing, verification)

	if opts.Output != "" {
		if err := results.WriteJSON(records, opts.Output); err != nil {
			return nil, err
		}
	}

	if s.archive != nil {
		runID, err := s.archive.SaveRun(opts.ImagePath, opts.Target, startedAt, len(pairing.Pairs), records)
		if err != nil {
			// History is an archive, not part of the run contract.
			slog.Error("Failed to archive run", "err", err)
		} else {
			slog.Info("Archived run", "run_id", runID)
		}
	}

	slog.Info("Run complete",
		"records", len(records),
		"pairs", len(pairing.Pairs),
		"matched", len(verification.MatchedProducts),
		"duration", time.Since(startedAt).Round(time.Millisecond))

	return &Report{
		Records:      records,
		Objects:      objects,
		Pairing:      pairing,
		Verification: verification,
		StartedAt:    startedAt,
	}, nil
}
