// Package recommend maps a hair-volume signal onto a discrete product tier.
// Tier bands, prices and confidence values are configuration, not logic:
// each product line carries its own table and the selection rule is shared.
package recommend

import (
	"strings"
)

// Tier is one band of a product line table. UpperBound is exclusive: a
// score equal to the bound falls into the next (higher) tier.
type Tier struct {
	Name        string  `json:"name"`
	BottleSize  string  `json:"bottle_size"`
	PriceLabel  string  `json:"price_label"`
	Description string  `json:"description"`
	UpperBound  float64 `json:"-"`
}

// TierTable is the full mapping for one product line. Tiers are ordered by
// ascending UpperBound; the last tier is the catch-all and its bound is
// ignored. Confidence depends only on the input method, never on the score.
type TierTable struct {
	Line              string
	Tiers             []Tier
	PresetConfidence  int
	CaptureConfidence int
}

// Result is the recommendation handed back to the storefront.
type Result struct {
	Line              string  `json:"line"`
	TierName          string  `json:"tier_name"`
	BottleSize        string  `json:"bottle_size"`
	PriceLabel        string  `json:"price_label"`
	Description       string  `json:"description"`
	ConfidencePercent int     `json:"confidence_percent"`
	VolumeScore       float64 `json:"volume_score"`
}

const (
	LineConsultation = "consultation"
	LineStarter      = "starter"
)

var consultationTable = TierTable{
	Line:              LineConsultation,
	PresetConfidence:  75,
	CaptureConfidence: 92,
	Tiers: []Tier{
		{Name: "Minimal", BottleSize: "30ml", PriceLabel: "€165", Description: "Targeted treatment for fine or short hair.", UpperBound: 0.30},
		{Name: "Moderate", BottleSize: "50ml", PriceLabel: "€235", Description: "Balanced treatment for medium-volume hair.", UpperBound: 0.60},
		{Name: "Full", BottleSize: "80ml", PriceLabel: "€295", Description: "Extended treatment for thick or long hair.", UpperBound: 0.85},
		{Name: "Maximum", BottleSize: "100ml", PriceLabel: "€375", Description: "Complete treatment for maximum volume and length."},
	},
}

var starterTable = TierTable{
	Line:              LineStarter,
	PresetConfidence:  75,
	CaptureConfidence: 88,
	Tiers: []Tier{
		{Name: "Essential", BottleSize: "30ml", PriceLabel: "$29.99", Description: "Entry treatment kit.", UpperBound: 0.35},
		{Name: "Plus", BottleSize: "50ml", PriceLabel: "$49.99", Description: "Standard treatment kit.", UpperBound: 0.70},
		{Name: "Pro", BottleSize: "80ml", PriceLabel: "$79.99", Description: "Full treatment kit."},
	},
}

var tablesByLine = map[string]TierTable{
	LineConsultation: consultationTable,
	LineStarter:      starterTable,
}

// Table returns the tier table for a product line. Unknown or empty lines
// fall back to the consultation line, which is the canonical one.
func Table(line string) TierTable {
	if table, ok := tablesByLine[strings.ToLower(strings.TrimSpace(line))]; ok {
		return table
	}
	return consultationTable
}

// Recommend selects a tier for the given volume score. The score is clamped
// to [0,1]; out-of-range callers land on the boundary tier instead of
// producing an undefined result.
func (t TierTable) Recommend(volumeScore float64, usedPreset bool) Result {
	score := clamp(volumeScore)

	selected := t.Tiers[len(t.Tiers)-1]
	for _, tier := range t.Tiers[:len(t.Tiers)-1] {
		if score < tier.UpperBound {
			selected = tier
			break
		}
	}

	confidence := t.CaptureConfidence
	if usedPreset {
		confidence = t.PresetConfidence
	}

	return Result{
		Line:              t.Line,
		TierName:          selected.Name,
		BottleSize:        selected.BottleSize,
		PriceLabel:        selected.PriceLabel,
		Description:       selected.Description,
		ConfidencePercent: confidence,
		VolumeScore:       score,
	}
}

func clamp(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
