package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
)

type InfluxClient struct {
	logger *zerolog.Logger

	dest   string
	bucket string
	token  string
	org    string

	write   api.WriteAPIBlocking
	query   api.QueryAPI
	tracker *ChangeTracker
}

func NewInfluxClient(flags *pflag.FlagSet, logger *zerolog.Logger) *InfluxClient {
	modLog := logger.With().Str("store", "influxdb").Logger()
	c := &InfluxClient{
		logger:  &modLog,
		tracker: NewChangeTracker(),
	}

	flags.StringVar(&c.dest, "influxdb.dest", "", "database addr")
	flags.StringVar(&c.bucket, "influxdb.bucket", "", "database")
	flags.StringVar(&c.token, "influxdb.token", "", "auth token")
	flags.StringVar(&c.org, "influxdb.org", "", "database org")

	return c
}

// Configured reports whether a destination was given at all; the caller picks
// a fallback sink when it was not.
func (i *InfluxClient) Configured() bool { return i.dest != "" }

func (i *InfluxClient) Init() {
	if i.dest == "" || i.token == "" || i.org == "" || i.bucket == "" {
		panic("trying to init an invalid store")
	}

	c := influxdb2.NewClient(i.dest, i.token)
	i.write = c.WriteAPIBlocking(i.org, i.bucket)
	i.query = c.QueryAPI(i.org)
}

func (i *InfluxClient) Write(ctx context.Context, ts time.Time, name string, val any, tags map[string]string) {
	pointVal := map[string]any{"value": val}
	point := influxdb2.NewPoint(name, tags, pointVal, ts)

	i.logger.Debug().
		Time("ts", ts).
		Str("name", name).
		Interface("val", val).
		Interface("tags", tags).
		Msg("write")

	if err := i.write.WritePoint(ctx, point); err != nil {
		i.logger.Error().Err(err).Msg("write error")
	}
}

func (i *InfluxClient) WriteIfChanged(ctx context.Context, ts time.Time, name string, val any, tags map[string]string) {
	if !i.tracker.Changed(name, tags, val) {
		i.logger.Debug().Time("ts", ts).Str("name", name).Msg("unchanged")
		return
	}
	i.Write(ctx, ts, name, val, tags)
}

// LastTimestamp asks the bucket for the newest point of the series within
// lookback. Query failures count as nothing found; the caller then falls
// back to its cold-start window.
func (i *InfluxClient) LastTimestamp(ctx context.Context, name string, tags map[string]string, lookback time.Duration) (time.Time, bool) {
	res, err := i.query.Query(ctx, lastPointQuery(i.bucket, name, tags, lookback))
	if err != nil {
		i.logger.Error().Err(err).Str("name", name).Msg("query error")
		return time.Time{}, false
	}

	var ts time.Time
	found := false
	for res.Next() {
		ts = res.Record().Time()
		found = true
	}
	if err := res.Err(); err != nil {
		i.logger.Error().Err(err).Str("name", name).Msg("query error")
		return time.Time{}, false
	}
	return ts, found
}

func lastPointQuery(bucket, name string, tags map[string]string, lookback time.Duration) string {
	var b strings.Builder
	fmt.Fprintf(&b, "from(bucket: %q) |> range(start: -%s) |> filter(fn: (r) => r._measurement == %q)", bucket, lookback, name)

	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " |> filter(fn: (r) => r[%q] == %q)", k, tags[k])
	}

	b.WriteString(" |> last()")
	return b.String()
}
