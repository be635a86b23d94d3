package cache

import "fmt"

// KeyPath is keyed by the station names exactly as requested, so the
// reverse direction is a separate entry.
func KeyPath(from, to string) string {
	return fmt.Sprintf("path:%s-%s", from, to)
}
