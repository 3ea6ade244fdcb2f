package uba

import "time"

// windowOverlap is re-fetched on both window edges so boundary-adjacent
// samples from the source are never missed; the high-water-mark check in
// Ingest makes the overlap idempotent.
const windowOverlap = time.Minute

// ComputeWindow derives the fetch window from the last known high-water-mark.
// A zero mark, or one older than the retention horizon, reinitializes to the
// start of the retention window, truncated to the minute so repeated restarts
// within the same minute compute an identical window. The window never
// extends further than one overlap past now.
func ComputeWindow(now, mark time.Time, retentionDays int) (time.Time, time.Time) {
	horizon := now.Add(-time.Duration(retentionDays) * 24 * time.Hour).Truncate(time.Minute)
	if mark.IsZero() || mark.Before(horizon) {
		mark = horizon
	}

	from := mark.Add(-windowOverlap)
	to := now.Add(windowOverlap)
	if from.After(to) {
		from = to
	}
	return from, to
}
