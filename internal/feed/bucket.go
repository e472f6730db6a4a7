// Package feed decides which time bucket an event belongs to, partitions an
// event list into buckets, and narrows the list with shortcut and
// multi-field filters. Everything here is pure: the reference instant is
// passed in by the caller and read exactly once per call.
package feed

import "fmt"

// Bucket is one of the mutually exclusive time classifications of an event.
type Bucket string

const (
	HappeningNow Bucket = "happening-now"
	LaterToday   Bucket = "later-today"
	Tomorrow     Bucket = "tomorrow"
	ThisWeek     Bucket = "this-week"
	Upcoming     Bucket = "upcoming"
	Past         Bucket = "past"
)

// DisplayOrder is the fixed order in which buckets are rendered. Past comes
// last and is collapsed by default.
var DisplayOrder = []Bucket{HappeningNow, LaterToday, Tomorrow, ThisWeek, Upcoming, Past}

var bucketLabels = map[Bucket]string{
	HappeningNow: "Happening Now",
	LaterToday:   "Later Today",
	Tomorrow:     "Tomorrow",
	ThisWeek:     "This Week",
	Upcoming:     "Upcoming",
	Past:         "Past",
}

// ParseBucket returns the bucket named s.
func ParseBucket(s string) (Bucket, error) {
	b := Bucket(s)
	if _, ok := bucketLabels[b]; !ok {
		return "", fmt.Errorf("unknown bucket %q", s)
	}
	return b, nil
}

// Label is the section heading for the bucket.
func (b Bucket) Label() string {
	return bucketLabels[b]
}

// Collapsed reports whether the bucket is folded away by default.
func (b Bucket) Collapsed() bool {
	return b == Past
}
