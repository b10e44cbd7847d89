package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/shelfvision/shelfscan/internal/shelf"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSaveAndReadRun(t *testing.T) {
	store := openTestStore(t)

	verified := true
	barcode := "4987107673756"
	pairedWith := 2
	records := []shelf.ResultRecord{
		{Index: 1, Class: "product", Label: "a product", Matched: true, PairedWith: &pairedWith, BarcodeVerified: &verified, BarcodeData: &barcode},
		{Index: 2, Class: "tag", Label: "a tag", BarcodeVerified: &verified, BarcodeData: &barcode},
	}

	runID, err := store.SaveRun("input/shelf.jpeg", "allercut", time.Now(), 1, records)
	if err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	runs, err := store.Runs(10)
	if err != nil {
		t.Fatalf("Runs failed: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("Expected 1 run, got %d", len(runs))
	}
	run := runs[0]
	if run.ID != runID || run.ImagePath != "input/shelf.jpeg" || run.TargetProduct != "allercut" {
		t.Errorf("Run = %+v", run)
	}
	if run.RecordCount != 2 || run.PairCount != 1 || run.MatchedCount != 1 {
		t.Errorf("Counts = records %d, pairs %d, matched %d", run.RecordCount, run.PairCount, run.MatchedCount)
	}

	stored, err := store.Records(runID)
	if err != nil {
		t.Fatalf("Records failed: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(stored))
	}
	if stored[0].Index != 1 || !stored[0].Matched {
		t.Errorf("First record = %+v", stored[0])
	}
	if stored[0].PairedWith == nil || *stored[0].PairedWith != 2 {
		t.Errorf("First record paired_with = %v, want 2", stored[0].PairedWith)
	}
	if stored[1].BarcodeVerified == nil || !*stored[1].BarcodeVerified {
		t.Errorf("Second record barcode_verified = %v, want true", stored[1].BarcodeVerified)
	}
	if stored[1].PairedWith != nil {
		t.Errorf("Second record paired_with = %v, want nil", *stored[1].PairedWith)
	}
}

func TestRunsNewestFirst(t *testing.T) {
	store := openTestStore(t)

	for _, image := range []string{"a.jpeg", "b.jpeg"} {
		if _, err := store.SaveRun(image, "", time.Now(), 0, nil); err != nil {
			t.Fatal(err)
		}
	}

	runs, err := store.Runs(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("Expected 2 runs, got %d", len(runs))
	}
	if runs[0].ImagePath != "b.jpeg" {
		t.Errorf("Newest run = %s, want b.jpeg", runs[0].ImagePath)
	}
}
