package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Client is a sink for reading events. Write records unconditionally at the
// event's own timestamp; WriteIfChanged suppresses consecutive duplicates of
// the same series. LastTimestamp recovers the newest stored event time for a
// series, ok=false when the backend holds none or cannot say.
type Client interface {
	Init()
	Write(context.Context, time.Time, string, any, map[string]string)
	WriteIfChanged(context.Context, time.Time, string, any, map[string]string)
	LastTimestamp(ctx context.Context, name string, tags map[string]string, lookback time.Duration) (time.Time, bool)
}

// SeriesKey identifies a series by name and tag set, independent of tag
// iteration order.
func SeriesKey(name string, tags map[string]string) string {
	if len(tags) == 0 {
		return name
	}

	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(name)
	for _, k := range keys {
		b.WriteByte('|')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(tags[k])
	}
	return b.String()
}

// ChangeTracker remembers the last value recorded per series so unchanged
// readings can be skipped. Safe for concurrent use.
type ChangeTracker struct {
	mu   sync.Mutex
	last map[string]string
}

func NewChangeTracker() *ChangeTracker {
	return &ChangeTracker{last: make(map[string]string)}
}

// Changed records val for the series and reports whether it differs from the
// previous recording.
func (c *ChangeTracker) Changed(name string, tags map[string]string, val any) bool {
	key := SeriesKey(name, tags)
	repr := fmt.Sprint(val)

	c.mu.Lock()
	defer c.mu.Unlock()
	if prev, ok := c.last[key]; ok && prev == repr {
		return false
	}
	c.last[key] = repr
	return true
}

type LogClient struct {
	logger  *zerolog.Logger
	tracker *ChangeTracker
}

func NewLogStore(log *zerolog.Logger) *LogClient {
	storeLog := log.With().Str("store", "log").Logger()
	return &LogClient{logger: &storeLog, tracker: NewChangeTracker()}
}

func (s *LogClient) Init() {}

func (s *LogClient) Write(ctx context.Context, ts time.Time, name string, val any, tags map[string]string) {
	s.logger.Info().
		Time("ts", ts).
		Str("name", name).
		Interface("val", val).
		Interface("tags", tags).
		Msg("store")
}

func (s *LogClient) WriteIfChanged(ctx context.Context, ts time.Time, name string, val any, tags map[string]string) {
	if !s.tracker.Changed(name, tags, val) {
		return
	}
	s.Write(ctx, ts, name, val, tags)
}

func (s *LogClient) LastTimestamp(context.Context, string, map[string]string, time.Duration) (time.Time, bool) {
	return time.Time{}, false
}
