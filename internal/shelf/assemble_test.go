package shelf

import (
	"context"
	"encoding/json"
	"testing"
)

func assembledScene(t *testing.T) ([]*DetectedObject, PairingResult, VerificationResult) {
	t.Helper()
	objects := []*DetectedObject{
		newObject(1, "a product", BoundingBox{Left: 0, Top: 0, Right: 100, Bottom: 100}),
		newObject(2, "a tag", BoundingBox{Left: 30, Top: 110, Right: 70, Bottom: 130}),
		func() *DetectedObject {
			obj := newObject(3, "a shelf", BoundingBox{Left: 0, Top: 0, Right: 900, Bottom: 900})
			obj.Filtered = true
			obj.WidthRatio = 0.9
			obj.HeightRatio = 0.9
			return obj
		}(),
		newObject(4, "something odd", BoundingBox{Left: 200, Top: 0, Right: 260, Bottom: 60}), // stays Unresolved
		newObject(5, "a product", BoundingBox{Left: 300, Top: 0, Right: 400, Bottom: 100}),
	}
	pairing := NewPairer().PairProductsAndTags(objects)

	matcher := &fakeMatcher{matches: map[string]bool{objects[0].CropPath: true}}
	scanner := &fakeScanner{codes: map[string][]string{objects[1].CropPath: {"4987107673756"}}}
	reg := testRegistry(t)
	verifier := NewVerifier(matcher, NewBarcodeVerifier(scanner, &fakeOCR{}, reg), reg, 2)
	verification := verifier.VerifyTarget(context.Background(), "allercut", objects, pairing)

	return objects, pairing, verification
}

func TestAssembleGroupOrderAndExclusion(t *testing.T) {
	objects, pairing, verification := assembledScene(t)
	records := Assemble(objects, pairing, verification)

	// Filtered + tags + resolved products; the Unresolved unfiltered
	// object (index 4) is absent by design.
	if len(records) != 4 {
		t.Fatalf("Expected 4 records, got %d", len(records))
	}

	expectedOrder := []struct {
		index int
		class string
	}{
		{3, "filtered"},
		{2, "tag"},
		{1, "product"},
		{5, "product"},
	}
	for i, want := range expectedOrder {
		if records[i].Index != want.index || records[i].Class != want.class {
			t.Errorf("records[%d] = (%d, %s), want (%d, %s)",
				i, records[i].Index, records[i].Class, want.index, want.class)
		}
	}

	for _, record := range records {
		if record.Index == 4 {
			t.Error("Unresolved unfiltered object leaked into the output")
		}
	}
}

func TestAssemblePairingAndVerificationFields(t *testing.T) {
	objects, pairing, verification := assembledScene(t)
	records := Assemble(objects, pairing, verification)

	byIndex := make(map[int]ResultRecord)
	for _, record := range records {
		byIndex[record.Index] = record
	}

	product := byIndex[1]
	if !product.Matched {
		t.Error("Product 1 should be matched")
	}
	if product.PairedWith == nil || *product.PairedWith != 2 {
		t.Errorf("Product 1 paired_with = %v, want 2", product.PairedWith)
	}

	tag := byIndex[2]
	if tag.Matched {
		t.Error("Tags never carry matched = true")
	}
	if tag.PairedWith == nil || *tag.PairedWith != 1 {
		t.Errorf("Tag 2 paired_with = %v, want 1", tag.PairedWith)
	}

	// Verified pair: product and tag must serialize identically for the
	// verification fields.
	productJSON := verificationFields(t, product)
	tagJSON := verificationFields(t, tag)
	if productJSON != tagJSON {
		t.Errorf("Verification fields differ: product %s, tag %s", productJSON, tagJSON)
	}

	unmatched := byIndex[5]
	if unmatched.Matched {
		t.Error("Product 5 should not be matched")
	}
	if unmatched.PairedWith != nil {
		t.Errorf("Product 5 paired_with = %v, want null", *unmatched.PairedWith)
	}
	if unmatched.BarcodeVerified != nil || unmatched.BarcodeData != nil {
		t.Error("Product 5 should have null verification fields")
	}
}

func verificationFields(t *testing.T, record ResultRecord) string {
	t.Helper()
	data, err := json.Marshal(map[string]any{
		"barcode_verified": record.BarcodeVerified,
		"barcode_data":     record.BarcodeData,
	})
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestResultRecordKeySets(t *testing.T) {
	objects, pairing, verification := assembledScene(t)
	records := Assemble(objects, pairing, verification)

	for _, record := range records {
		data, err := json.Marshal(record)
		if err != nil {
			t.Fatal(err)
		}
		var keys map[string]json.RawMessage
		if err := json.Unmarshal(data, &keys); err != nil {
			t.Fatal(err)
		}

		_, hasWidth := keys["width_ratio"]
		_, hasHeight := keys["height_ratio"]
		if record.Class == "filtered" {
			if !hasWidth || !hasHeight {
				t.Errorf("Filtered record %d missing ratio keys", record.Index)
			}
		} else if hasWidth || hasHeight {
			t.Errorf("Record %d (%s) must not carry ratio keys", record.Index, record.Class)
		}

		// These keys are always present, null when absent.
		for _, key := range []string{"index", "class", "label", "matched", "paired_with", "barcode_verified", "barcode_data"} {
			if _, ok := keys[key]; !ok {
				t.Errorf("Record %d missing key %q", record.Index, key)
			}
		}
	}
}

func TestAssembleWithoutTargetSearch(t *testing.T) {
	objects := []*DetectedObject{
		newObject(1, "a product", BoundingBox{Left: 0, Top: 0, Right: 100, Bottom: 100}),
		newObject(2, "a tag", BoundingBox{Left: 30, Top: 110, Right: 70, Bottom: 130}),
	}
	pairing := NewPairer().PairProductsAndTags(objects)
	records := Assemble(objects, pairing, VerificationResult{Outcomes: map[int]Outcome{}})

	for _, record := range records {
		if record.Matched {
			t.Errorf("Record %d matched without a target search", record.Index)
		}
		if record.BarcodeVerified != nil || record.BarcodeData != nil {
			t.Errorf("Record %d has verification fields without a search", record.Index)
		}
	}
}
