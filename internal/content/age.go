package content

import (
	"fmt"
	"time"
)

// RelativeAge renders an epoch-millisecond timestamp relative to now. A zero
// timestamp is a write whose server time has not resolved yet.
func RelativeAge(tsMillis int64, now time.Time) string {
	if tsMillis <= 0 {
		return "Just now"
	}
	at := time.UnixMilli(tsMillis)
	diff := now.Sub(at)
	switch {
	case diff < time.Minute:
		return "Just now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff/time.Minute))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff/time.Hour))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(diff/(24*time.Hour)))
	}
	return at.UTC().Format("Jan 2, 2006")
}
