package credits

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// NextBatchID returns the batch identifier following existing for the year of
// now, formatted BCR-<year>-<seq>. The sequence is one more than the number
// of existing ids containing the year anywhere in the string, so an id like
// "X-2025" from another scheme also counts.
func NextBatchID(existing []string, now time.Time) string {
	year := strconv.Itoa(now.Year())
	count := 0
	for _, id := range existing {
		if strings.Contains(id, year) {
			count++
		}
	}
	return fmt.Sprintf("BCR-%s-%03d", year, count+1)
}
