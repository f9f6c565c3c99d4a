package diagnosis

import "strings"

// Badge is the presentational style of a classification label.
type Badge string

const (
	BadgeGreen Badge = "green"
	BadgeAmber Badge = "amber"
	BadgeRed   Badge = "red"
)

// BadgeFor picks a badge color from the label text. Negative findings
// ("non-glaucoma") are green, suspects amber, anything else red.
func BadgeFor(label string) Badge {
	t := strings.ToLower(strings.TrimSpace(label))
	switch {
	case strings.Contains(t, "non"):
		return BadgeGreen
	case strings.Contains(t, "suspect"):
		return BadgeAmber
	default:
		return BadgeRed
	}
}
