package recommend

import "strings"

// Preset is a manual hair-volume selection offered when the customer skips
// the photo capture flow. Scores are fixed catalog constants.
type Preset struct {
	ID          string  `json:"id"`
	Label       string  `json:"label"`
	VolumeScore float64 `json:"volume_score"`
}

// CaptureDefaultScore is used when the photo capture flow produced no
// usable volume estimate.
const CaptureDefaultScore = 0.50

var presets = []Preset{
	{ID: "fine-short", Label: "Fine / Short", VolumeScore: 0.25},
	{ID: "medium", Label: "Medium", VolumeScore: 0.50},
	{ID: "thick-long", Label: "Thick / Long", VolumeScore: 0.75},
	{ID: "very-thick", Label: "Very Thick / Extra Long", VolumeScore: 0.90},
}

// Presets returns the manual selection catalog in display order.
func Presets() []Preset {
	out := make([]Preset, len(presets))
	copy(out, presets)
	return out
}

// FindPreset looks a preset up by id.
func FindPreset(id string) (Preset, bool) {
	normalized := strings.ToLower(strings.TrimSpace(id))
	for _, preset := range presets {
		if preset.ID == normalized {
			return preset, true
		}
	}
	return Preset{}, false
}
