package monitoring

import (
	"fmt"
	"time"
)

// NewRecordID returns MON-<unix millis>-<4 digits>. intn must return a value
// in [0, n).
func NewRecordID(now time.Time, intn func(n int) int) string {
	return fmt.Sprintf("MON-%d-%04d", now.UnixMilli(), 1000+intn(9000))
}
