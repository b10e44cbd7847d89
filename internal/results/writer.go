// Package results serializes the final record list and prints run summaries.
package results

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/shelfvision/shelfscan/internal/shelf"
)

// WriteJSON writes the record list as one JSON array, 2-space indented.
// The file is written via a temp file and rename so a failed run never
// leaves a partial result behind.
func WriteJSON(records []shelf.ResultRecord, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	if records == nil {
		records = []shelf.ResultRecord{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(filepath.Dir(path), ".results-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp results file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write results: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close results file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to move results into place: %w", err)
	}

	slog.Info("Saved results", "path", path, "records", len(records))
	return nil
}

// PrintSummary prints a human-readable overview of one run's records.
func PrintSummary(records []shelf.ResultRecord) {
	var products, tags, filtered, matched, verified, mismatched int
	for _, record := range records {
		switch record.Class {
		case "product":
			products++
		case "tag":
			tags++
		case "filtered":
			filtered++
		}
		if record.Matched {
			matched++
		}
		if record.Class == "product" && record.BarcodeVerified != nil {
			if *record.BarcodeVerified {
				verified++
			} else {
				mismatched++
			}
		}
	}

	fmt.Println("========================================")
	fmt.Println("Shelf Scan Summary")
	fmt.Println("========================================")
	fmt.Printf("Records:            %d\n", len(records))
	fmt.Printf("  Products:         %d\n", products)
	fmt.Printf("  Tags:             %d\n", tags)
	fmt.Printf("  Filtered:         %d\n", filtered)
	fmt.Printf("Matched products:   %d\n", matched)
	fmt.Printf("Barcode verified:   %d\n", verified)
	fmt.Printf("Barcode mismatch:   %d\n", mismatched)
}
