package util

import "time"

// Now devuelve el instante actual en UTC.
func Now() time.Time {
	return time.Now().UTC()
}
