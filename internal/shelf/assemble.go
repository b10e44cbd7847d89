package shelf

// ResultRecord is the external, serializable view of one detected object.
// Field presence follows the output contract: width_ratio/height_ratio only
// exist on filtered records, while paired_with, barcode_verified and
// barcode_data are explicit nulls when absent.
type ResultRecord struct {
	Index           int      `json:"index"`
	Class           string   `json:"class"`
	Label           string   `json:"label"`
	WidthRatio      *float64 `json:"width_ratio,omitempty"`
	HeightRatio     *float64 `json:"height_ratio,omitempty"`
	Matched         bool     `json:"matched"`
	PairedWith      *int     `json:"paired_with"`
	BarcodeVerified *bool    `json:"barcode_verified"`
	BarcodeData     *string  `json:"barcode_data"`
}

// Assemble merges the processed objects into the final ordered record list:
// filtered objects first, then tags, then products, each group in original
// index order. Objects still Unresolved and not filtered are excluded from
// the output. Assemble performs lookups and field copying only; it never
// mutates its inputs.
func Assemble(objects []*DetectedObject, pairing PairingResult, verification VerificationResult) []ResultRecord {
	var records []ResultRecord

	for _, obj := range objects {
		if !obj.Filtered {
			continue
		}
		widthRatio := obj.WidthRatio
		heightRatio := obj.HeightRatio
		records = append(records, ResultRecord{
			Index:       obj.Index,
			Class:       "filtered",
			Label:       obj.RawLabel,
			WidthRatio:  &widthRatio,
			HeightRatio: &heightRatio,
		})
	}

	for _, obj := range objects {
		if obj.Filtered || obj.Class != Tag {
			continue
		}
		record := ResultRecord{
			Index: obj.Index,
			Class: "tag",
			Label: obj.RawLabel,
		}
		if pair, ok := pairing.PairForTag(obj.Index); ok {
			productIndex := pair.Product.Index
			record.PairedWith = &productIndex
		}
		applyOutcome(&record, verification, obj.Index)
		records = append(records, record)
	}

	for _, obj := range objects {
		if obj.Filtered || obj.Class != Product {
			continue
		}
		record := ResultRecord{
			Index:   obj.Index,
			Class:   "product",
			Label:   obj.RawLabel,
			Matched: verification.Requested && verification.IsMatched(obj.Index),
		}
		if pair, ok := pairing.PairForProduct(obj.Index); ok {
			tagIndex := pair.Tag.Index
			record.PairedWith = &tagIndex
		}
		applyOutcome(&record, verification, obj.Index)
		records = append(records, record)
	}

	return records
}

// applyOutcome copies a verification verdict onto a record. Matched maps to
// true, Mismatched to false, and Indeterminate stays null; the detected
// barcode is carried whenever one was read.
func applyOutcome(record *ResultRecord, verification VerificationResult, index int) {
	outcome, ok := verification.Outcomes[index]
	if !ok {
		return
	}
	switch outcome.Status {
	case StatusMatched:
		verified := true
		record.BarcodeVerified = &verified
	case StatusMismatched:
		verified := false
		record.BarcodeVerified = &verified
	}
	if outcome.Barcode != "" {
		barcode := outcome.Barcode
		record.BarcodeData = &barcode
	}
}
