// Package units converts between bale counts and tons and normalizes prices
// to the canonical $/ton figure stored on ledger entries.
package units

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// LbsPerTon is the weight of one short ton in pounds
const LbsPerTon = 2000.0

// displayPrinter groups thousands the way amounts are shown to users
var displayPrinter = message.NewPrinter(language.English)

// FallbackWeight is used for bale sizes missing from the weight table
const FallbackWeight = 1200.0

// AmountUnit is the unit an entered quantity is expressed in
type AmountUnit string

const (
	AmountUnitBales AmountUnit = "bales"
	AmountUnitTons  AmountUnit = "tons"
)

// PriceUnit is the unit an entered price is expressed per
type PriceUnit string

const (
	PriceUnitBale PriceUnit = "bale"
	PriceUnitTon  PriceUnit = "ton"
)

// baleSizeWeights holds the default lbs per bale for each canonical bale size
var baleSizeWeights = map[string]float64{
	"3x3":   1100,
	"3x4":   1200,
	"4x4":   1800,
	"2-Tie": 60,
	"3-Tie": 90,
}

// legacyBaleSizes maps labels used by older records to their canonical form
var legacyBaleSizes = map[string]string{
	"3x4x8":        "3x4",
	"3x3x8":        "3x3",
	"Round":        "4x4",
	"Small Square": "3-Tie",
}

// BaleSizes returns the canonical bale size labels in display order
func BaleSizes() []string {
	return []string{"3x3", "3x4", "4x4", "2-Tie", "3-Tie"}
}

// NormalizeBaleSize maps legacy labels onto the canonical short labels.
// Unknown labels are returned trimmed but otherwise unchanged.
func NormalizeBaleSize(label string) string {
	label = strings.TrimSpace(label)
	if canonical, ok := legacyBaleSizes[label]; ok {
		return canonical
	}
	return label
}

// DefaultWeight returns the default lbs per bale for a bale size
func DefaultWeight(baleSize string) float64 {
	if w, ok := baleSizeWeights[NormalizeBaleSize(baleSize)]; ok {
		return w
	}
	return FallbackWeight
}

// ResolveWeight returns the explicit weight when set and positive,
// otherwise the default weight of the bale size
func ResolveWeight(explicit *float64, baleSize string) float64 {
	if explicit != nil && *explicit > 0 {
		return *explicit
	}
	return DefaultWeight(baleSize)
}

// BalesToTons converts a bale count to tons
func BalesToTons(bales, lbsPerBale float64) float64 {
	return bales * lbsPerBale / LbsPerTon
}

// TonsToBales converts tons to a whole number of bales.
// The result is rounded, so tons -> bales -> tons is not exact.
func TonsToBales(tons, lbsPerBale float64) float64 {
	return math.Round(tons * LbsPerTon / lbsPerBale)
}

// NormalizePrice converts a price entered per unit into $/ton
func NormalizePrice(price float64, unit PriceUnit, lbsPerBale float64) float64 {
	if unit == PriceUnitTon {
		return price
	}
	return price * LbsPerTon / lbsPerBale
}

// PricePerTonToPerBale converts a $/ton price into $/bale for display
func PricePerTonToPerBale(pricePerTon, lbsPerBale float64) float64 {
	return pricePerTon * lbsPerBale / LbsPerTon
}

// ToBales converts an entered amount into bales
func ToBales(amount float64, unit AmountUnit, lbsPerBale float64) float64 {
	if unit == AmountUnitTons {
		return TonsToBales(amount, lbsPerBale)
	}
	return amount
}

// ParseAmountUnit parses an amount unit, defaulting to bales when empty
func ParseAmountUnit(s string) (AmountUnit, error) {
	switch AmountUnit(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return AmountUnitBales, nil
	case AmountUnitBales:
		return AmountUnitBales, nil
	case AmountUnitTons:
		return AmountUnitTons, nil
	default:
		return "", fmt.Errorf("unknown amount unit %q", s)
	}
}

// ParsePriceUnit parses a price unit, returning def when empty
func ParsePriceUnit(s string, def PriceUnit) (PriceUnit, error) {
	switch PriceUnit(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return def, nil
	case PriceUnitBale:
		return PriceUnitBale, nil
	case PriceUnitTon:
		return PriceUnitTon, nil
	default:
		return "", fmt.Errorf("unknown price unit %q", s)
	}
}

// FormatDualUnits renders a bale count with its ton equivalent, e.g. "1,250 bales (750.00 tons)"
func FormatDualUnits(bales, lbsPerBale float64) string {
	return displayPrinter.Sprintf("%.0f bales (%.2f tons)", bales, BalesToTons(bales, lbsPerBale))
}
