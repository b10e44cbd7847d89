package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/shelfvision/shelfscan/internal/history"
	"github.com/shelfvision/shelfscan/internal/registry"
	"github.com/shelfvision/shelfscan/internal/results"
	"github.com/shelfvision/shelfscan/internal/scan"
	"github.com/shelfvision/shelfscan/internal/vision/gemini"
	"github.com/shelfvision/shelfscan/internal/vision/modelhost"
)

func newScanCmd() *cobra.Command {
	opts := scan.DefaultOptions()
	var registryPath string
	var modelhostURL string
	var historyPath string

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run the shelf-scan pipeline on one image",
		Long: `Runs the full pipeline on a shelf photo: object detection, class
resolution, product/tag pairing, target product verification and JSON
result output.`,
		Example: `  # Scan a shelf photo for a registered product
  shelfscan scan --image input/shelf.jpeg --target "AG AllerCut c 15ml"

  # Scan without a target search
  shelfscan scan --image input/shelf.jpeg --output output/results.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.ImagePath == "" {
				return fmt.Errorf("--image is required")
			}

			reg := registry.New()
			if _, err := os.Stat(registryPath); err == nil {
				loaded, err := registry.Load(registryPath)
				if err != nil {
					return fmt.Errorf("failed to load registry: %w", err)
				}
				reg = loaded
			} else if opts.Target != "" {
				slog.Warn("Target given but registry file is missing, verification will be skipped",
					"target", opts.Target, "registry", registryPath)
			}

			var archive *history.Store
			if historyPath == "" {
				historyPath = os.Getenv("SHELFSCAN_HISTORY_DB")
			}
			if historyPath != "" {
				store, err := history.Open(historyPath)
				if err != nil {
					return err
				}
				defer store.Close()
				archive = store
			}

			service := scan.NewService(buildCollaborators(modelhostURL), reg, archive)
			report, err := service.Run(cmd.Context(), opts)
			if err != nil {
				return err
			}

			results.PrintSummary(report.Records)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.ImagePath, "image", "", "Path to the shelf image to scan")
	cmd.Flags().StringVar(&opts.Prompt, "prompt", opts.Prompt, "Detector text prompt")
	cmd.Flags().Float64Var(&opts.Threshold, "threshold", opts.Threshold, "Detector score threshold")
	cmd.Flags().StringVar(&opts.Target, "target", "", "Registered product name to search for")
	cmd.Flags().StringVar(&opts.Output, "output", opts.Output, "Path for the JSON result artifact")
	cmd.Flags().StringVar(&registryPath, "registry", "products.yaml", "Product registry file (.yaml, .jsonl or .parquet)")
	cmd.Flags().StringVar(&modelhostURL, "modelhost", "", "Inference service base URL")
	cmd.Flags().StringVar(&historyPath, "history", "", "SQLite run history database (optional)")
	cmd.Flags().IntVar(&opts.Concurrency, "concurrency", opts.Concurrency, "Parallel classifier/matcher calls")
	cmd.Flags().IntVar(&opts.Ingest.MaxObjects, "max-objects", 0, "Cap on accepted detections (0 = no cap)")
	cmd.Flags().Float64Var(&opts.Ingest.MaxWidthRatio, "max-width-ratio", opts.Ingest.MaxWidthRatio, "Exclude boxes wider than this fraction of the image")
	cmd.Flags().Float64Var(&opts.Ingest.MaxHeightRatio, "max-height-ratio", opts.Ingest.MaxHeightRatio, "Exclude boxes taller than this fraction of the image")
	cmd.Flags().StringVar(&opts.Ingest.CropDir, "crop-dir", opts.Ingest.CropDir, "Directory for per-detection crops")
	cmd.Flags().Float64Var(&opts.HorizontalDistanceFactor, "horizontal-factor", opts.HorizontalDistanceFactor, "Horizontal pairing gate as a multiple of product width")
	cmd.Flags().Float64Var(&opts.MaxPairingDistance, "max-distance", opts.MaxPairingDistance, "Absolute pairing distance cap in pixels")

	return cmd
}

// buildCollaborators wires the vision backends. The model host serves every
// capability; Gemini can take over the fallback classifier and OCR when
// SHELFSCAN_CLASSIFIER=gemini.
func buildCollaborators(modelhostURL string) scan.Collaborators {
	host := modelhost.New(modelhostURL)
	collaborators := scan.Collaborators{
		Detector:   host,
		Classifier: host,
		Matcher:    host,
		Barcodes:   host,
		OCR:        host,
		Cropper:    host,
	}
	if os.Getenv("SHELFSCAN_CLASSIFIER") == "gemini" {
		provider := gemini.New("")
		collaborators.Classifier = provider
		collaborators.OCR = provider
		slog.Info("Using Gemini for fallback classification and OCR")
	}
	return collaborators
}
