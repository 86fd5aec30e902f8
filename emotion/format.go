package emotion

import (
	"fmt"
	"strings"
)

// FormatTimeline renders one line per second, e.g. "happy 0.57 sad 0.28".
// The secondary is omitted when absent or zero.
func FormatTimeline(t Table) string {
	lines := make([]string, 0, len(t))
	for _, r := range t {
		line := fmt.Sprintf("%s %.2f", r.Primary.Label, r.Primary.Score)
		if r.HasSecondary() && r.Secondary.Score > 0 {
			line += fmt.Sprintf(" %s %.2f", r.Secondary.Label, r.Secondary.Score)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
