package uba

import (
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
)

// Reading is one emitted event: a named value with the explicit timestamp of
// the sample it came from, never the time of processing. Index marks the two
// per-sample index readings apart from component readings.
type Reading struct {
	Name  string
	Value any
	Time  time.Time
	Index bool
}

// Engine turns decoded samples into ordered reading events while advancing a
// high-water-mark. It holds only immutable lookups, so one engine is safe to
// reuse across cycles.
type Engine struct {
	tables *Tables
	loc    *time.Location
	log    zerolog.Logger
}

func NewEngine(tables *Tables, loc *time.Location, log zerolog.Logger) *Engine {
	return &Engine{tables: tables, loc: loc, log: log}
}

// Ingest walks the samples in lexicographic key order (chronological for
// these keys, hour-24 notation included), drops everything at or before the
// mark, and emits the remainder as readings. The returned mark is the latest
// timestamp that actually produced an event; it never moves backwards and
// never advances speculatively on skipped or empty samples, so feeding the
// same payload again yields no events.
func (e *Engine) Ingest(samples []Sample, mark time.Time) ([]Reading, time.Time, error) {
	sorted := append([]Sample(nil), samples...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Key < sorted[j].Key })

	var events []Reading
	var maxSeen time.Time

	for _, s := range sorted {
		ts, err := ParseStationTime(s.Key, e.loc)
		if err != nil {
			return nil, mark, fmt.Errorf("%w: timestamp key %q: %v", ErrDecode, s.Key, err)
		}

		if !ts.After(mark) {
			e.log.Debug().Str("key", s.Key).Msg("already ingested")
			continue
		}

		emitted := false

		if s.HasIndex {
			events = append(events, Reading{Name: IndexReading, Value: s.Index, Time: ts, Index: true})
			emitted = true

			if label, ok := e.tables.IndexName(s.Index); ok {
				events = append(events, Reading{Name: IndexNameReading, Value: label, Time: ts, Index: true})
			} else {
				e.log.Warn().Int("index", s.Index).Str("key", s.Key).Msg("index code outside label scale")
			}
		}

		for _, m := range s.Measurements {
			name, ok := e.tables.ComponentName(m.Code)
			if !ok {
				e.log.Warn().Int("code", m.Code).Str("key", s.Key).Msg("unrecognized component code")
				continue
			}
			if m.Value <= 0 {
				e.log.Debug().Str("component", name).Str("key", s.Key).Msg("no measurement")
				continue
			}
			events = append(events, Reading{Name: name, Value: m.Value, Time: ts})
			emitted = true
		}

		if emitted && ts.After(maxSeen) {
			maxSeen = ts
		}
	}

	if maxSeen.After(mark) {
		mark = maxSeen
	}
	return events, mark, nil
}
