package shelf

import (
	"fmt"
	"log/slog"
	"math"
)

// Pair associates one product region with its nearest eligible tag region.
type Pair struct {
	Product  *DetectedObject
	Tag      *DetectedObject
	Distance float64
}

// PairingResult is the output of PairProductsAndTags.
type PairingResult struct {
	Pairs            []Pair
	UnpairedProducts []*DetectedObject
	UnpairedTags     []*DetectedObject
}

// Pairer matches products to tags by spatial proximity.
type Pairer struct {
	// HorizontalDistanceFactor scales the product width into the maximum
	// allowed horizontal offset between product and tag centers.
	HorizontalDistanceFactor float64
	// MaxPairingDistance is the absolute distance cap, in pixels.
	MaxPairingDistance float64
}

// NewPairer returns a pairer with the default gates (factor 1.0, cap 300).
func NewPairer() *Pairer {
	return &Pairer{
		HorizontalDistanceFactor: 1.0,
		MaxPairingDistance:       300,
	}
}

// PairProductsAndTags computes a best-effort one-tag-per-product assignment.
// For each product in input order, the tag with the smallest Euclidean
// distance from the product's bottom-center to the tag's top-center wins,
// subject to the horizontal and absolute distance gates. Tags are never
// removed from the candidate pool, so one tag may pair with several
// products. Ties keep the earlier tag: the comparison is strictly
// less-than, so an equal distance never displaces an earlier candidate.
func (p *Pairer) PairProductsAndTags(objects []*DetectedObject) PairingResult {
	var products, tags []*DetectedObject
	for _, obj := range objects {
		if obj.Filtered {
			continue
		}
		switch obj.Class {
		case Product:
			products = append(products, obj)
		case Tag:
			tags = append(tags, obj)
		}
	}

	slog.Info("Pairing products and tags", "products", len(products), "tags", len(tags))

	result := PairingResult{}
	for _, product := range products {
		productX, productY := product.Box.BottomCenter()
		maxHorizontal := product.Box.Width() * p.HorizontalDistanceFactor

		var bestTag *DetectedObject
		minDistance := math.Inf(1)

		for _, tag := range tags {
			tagX, tagY := tag.Box.TopCenter()
			horizontal := math.Abs(tagX - productX)
			vertical := math.Abs(tagY - productY)
			distance := math.Sqrt(horizontal*horizontal + vertical*vertical)

			if horizontal > maxHorizontal {
				continue
			}
			if distance > p.MaxPairingDistance {
				continue
			}
			if distance < minDistance {
				minDistance = distance
				bestTag = tag
			}
		}

		if bestTag != nil {
			result.Pairs = append(result.Pairs, Pair{Product: product, Tag: bestTag, Distance: minDistance})
			slog.Info("Paired product with tag",
				"product", product.Index,
				"tag", bestTag.Index,
				"distance", fmt.Sprintf("%.1f", minDistance))
		} else {
			result.UnpairedProducts = append(result.UnpairedProducts, product)
			slog.Info("No tag in range for product", "product", product.Index)
		}
	}

	pairedTags := make(map[int]int)
	for _, pair := range result.Pairs {
		pairedTags[pair.Tag.Index]++
	}
	for _, tag := range tags {
		if pairedTags[tag.Index] == 0 {
			result.UnpairedTags = append(result.UnpairedTags, tag)
		}
	}
	for tagIndex, count := range pairedTags {
		if count > 1 {
			slog.Info("Tag paired with multiple products", "tag", tagIndex, "products", count)
		}
	}

	slog.Info("Pairing complete",
		"pairs", len(result.Pairs),
		"unpaired_products", len(result.UnpairedProducts),
		"unpaired_tags", len(result.UnpairedTags))
	return result
}

// PairForProduct returns the pair whose product has the given index.
func (r PairingResult) PairForProduct(index int) (Pair, bool) {
	for _, pair := range r.Pairs {
		if pair.Product.Index == index {
			return pair, true
		}
	}
	return Pair{}, false
}

// PairForTag returns the first pair whose tag has the given index.
func (r PairingResult) PairForTag(index int) (Pair, bool) {
	for _, pair := range r.Pairs {
		if pair.Tag.Index == index {
			return pair, true
		}
	}
	return Pair{}, false
}
