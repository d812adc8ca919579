// Package trackbuf buffers location fixes in a local SQLite database until
// they are uploaded. Fixes recorded while the backend is unreachable survive
// process restarts; the reporter drains the buffer in batches and marks
// rows uploaded only after the backend accepted them.
package trackbuf

import "time"

// Fix is one buffered location sample.
type Fix struct {
	ID         string
	Lat        float64
	Lon        float64
	Accuracy   float64
	RecordedAt time.Time
	Uploaded   bool
}
