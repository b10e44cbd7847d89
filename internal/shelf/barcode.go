package shelf

import (
	"context"
	"log/slog"
	"strings"

	"github.com/shelfvision/shelfscan/internal/registry"
	"github.com/shelfvision/shelfscan/internal/vision"
)

// VerificationStatus is the tri-state result of barcode verification.
type VerificationStatus int

const (
	StatusIndeterminate VerificationStatus = iota
	StatusMatched
	StatusMismatched
)

// IndeterminateReason explains why a verification could not decide.
type IndeterminateReason int

const (
	ReasonNone IndeterminateReason = iota
	ReasonProductNotRegistered
	ReasonNoExpectedBarcode
	ReasonNoBarcodeDetected
	ReasonNoPairedTag
)

func (r IndeterminateReason) String() string {
	switch r {
	case ReasonProductNotRegistered:
		return "product not registered"
	case ReasonNoExpectedBarcode:
		return "no expected barcode on file"
	case ReasonNoBarcodeDetected:
		return "no barcode detected"
	case ReasonNoPairedTag:
		return "no paired tag"
	default:
		return "none"
	}
}

// Outcome is one verification verdict. Barcode carries the detected code
// whenever one was read, including on indeterminate outcomes.
type Outcome struct {
	Status  VerificationStatus
	Reason  IndeterminateReason
	Barcode string
}

func indeterminate(reason IndeterminateReason, barcode string) Outcome {
	return Outcome{Status: StatusIndeterminate, Reason: reason, Barcode: barcode}
}

// BarcodeVerifier reads a barcode off a tag crop and checks it against the
// registry entry for a named product.
type BarcodeVerifier struct {
	scanner vision.BarcodeScanner
	ocr     vision.OCRReader
	reg     *registry.Registry
}

// NewBarcodeVerifier wires the scanner, the OCR fallback and the registry.
func NewBarcodeVerifier(scanner vision.BarcodeScanner, ocr vision.OCRReader, reg *registry.Registry) *BarcodeVerifier {
	return &BarcodeVerifier{scanner: scanner, ocr: ocr, reg: reg}
}

// Verify extracts a barcode from the tag crop and compares it against the
// expected barcode registered for productName. A direct EAN-13 read is
// preferred; when none is found an OCR pass looks for a run of exactly 13
// digits. Only the first extracted code is used.
func (v *BarcodeVerifier) Verify(ctx context.Context, tagImagePath, productName string) Outcome {
	detected := v.extractBarcode(ctx, tagImagePath)
	if detected == "" {
		slog.Info("No barcode readable from tag", "tag_image", tagImagePath)
		return indeterminate(ReasonNoBarcodeDetected, "")
	}
	slog.Info("Detected barcode", "code", detected)

	record, ok := v.reg.Lookup(productName)
	if !ok {
		slog.Warn("Product not registered", "name", productName)
		return indeterminate(ReasonProductNotRegistered, detected)
	}
	if record.Barcode == "" {
		slog.Warn("Product has no expected barcode", "name", productName)
		return indeterminate(ReasonNoExpectedBarcode, detected)
	}

	if detected == record.Barcode {
		slog.Info("Barcode matched", "code", detected)
		return Outcome{Status: StatusMatched, Barcode: detected}
	}
	slog.Info("Barcode mismatch", "expected", record.Barcode, "detected", detected)
	return Outcome{Status: StatusMismatched, Barcode: detected}
}

// extractBarcode returns the first EAN-13 read, falling back to OCR when the
// symbology scan finds nothing. Collaborator failures are logged and treated
// as "nothing read".
func (v *BarcodeVerifier) extractBarcode(ctx context.Context, imagePath string) string {
	codes, err := v.scanner.Extract(ctx, imagePath)
	if err != nil {
		slog.Error("Barcode scan failed", "image", imagePath, "err", err)
	} else if len(codes) > 0 {
		return codes[0]
	}

	slog.Info("No barcode symbology read, trying OCR", "image", imagePath)
	fragments, err := v.ocr.ReadText(ctx, imagePath)
	if err != nil {
		slog.Error("OCR read failed", "image", imagePath, "err", err)
		return ""
	}
	return firstThirteenDigitRun(fragments)
}

// firstThirteenDigitRun scans OCR fragments in order and returns the first
// whose digits form a string of exactly 13 characters.
func firstThirteenDigitRun(fragments []vision.TextFragment) string {
	for _, frag := range fragments {
		digits := digitsOnly(frag.Text)
		if len(digits) == 13 {
			slog.Info("OCR barcode candidate accepted", "text", frag.Text, "digits", digits, "confidence", frag.Confidence)
			return digits
		}
		if digits != "" {
			slog.Debug("OCR fragment skipped", "text", frag.Text, "digits", len(digits))
		}
	}
	return ""
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
