package looper

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	lm "github.com/hausgeist/luftmetrics/internal"
	"github.com/hausgeist/luftmetrics/internal/store"
	"github.com/hausgeist/luftmetrics/internal/uba"
)

// API shape selectors for the uba.api flag.
const (
	APIAirQuality = "airquality"
	APIMeasures   = "measures"
)

// Config is shared by all UBA station pollers. Flags are registered once;
// every station runner reads the same values after parsing.
type Config struct {
	Stations   []string
	Freq       time.Duration
	RetryShort time.Duration
	RetryLong  time.Duration
	Enabled    bool

	API        string
	BaseURL    string
	Offset     string
	Scope      string
	Retention  int
	LastUpdate bool

	Components map[string]string
	IndexNames []string
}

func RegisterFlags(flags *pflag.FlagSet) *Config {
	c := &Config{}

	flags.StringSliceVar(&c.Stations, "uba.stations", nil, "Station codes to poll")
	flags.DurationVar(&c.Freq, "uba.freq", time.Hour, "Polling frequency")
	flags.DurationVar(&c.RetryShort, "uba.retryShort", 600*time.Second, "Retry delay after a first failure")
	flags.DurationVar(&c.RetryLong, "uba.retryLong", 3600*time.Second, "Retry delay after repeated failures")
	flags.BoolVar(&c.Enabled, "uba.enabled", false, "Enable polling")
	flags.StringVar(&c.API, "uba.api", APIAirQuality, "API shape: airquality or measures")
	flags.StringVar(&c.BaseURL, "uba.url", "https://www.umweltbundesamt.de/api/air_data/v2", "API base URL")
	flags.StringVar(&c.Offset, "uba.offset", "+0100", "Station-local UTC offset")
	flags.StringVar(&c.Scope, "uba.scope", "2", "Measure scope id (2 = hourly mean)")
	flags.IntVar(&c.Retention, "uba.retention", 30, "First-run backfill window in days")
	flags.BoolVar(&c.LastUpdate, "uba.lastUpdate", true, "Write last_update readings")
	flags.StringToStringVar(&c.Components, "uba.components", uba.DefaultComponents(), "Component code to name table")
	flags.StringSliceVar(&c.IndexNames, "uba.indexNames", uba.DefaultIndexNames(), "Index labels, best to worst")

	return c
}

// Settings resolves the runner knobs once flags are parsed.
func (c *Config) Settings() lm.RunnerSettings {
	return lm.RunnerSettings{
		Freq:       c.Freq,
		RetryShort: c.RetryShort,
		RetryLong:  c.RetryLong,
		Enabled:    c.Enabled,
	}
}

// UBA polls the Umweltbundesamt air data API for one station and republishes
// the returned time series as readings carrying their own event timestamps.
// Each instance owns its high-water-marks exclusively; station pollers share
// no mutable state.
type UBA struct {
	client *lm.HttpClient
	logger *zerolog.Logger

	station string
	cfg     *Config

	initErr error
	loc     *time.Location
	tables  *uba.Tables
	engine  *uba.Engine
	base    *url.URL
	legacy  bool

	recovered bool
	marks     map[string]time.Time
}

// NewUBA returns a factory bound to one station; the runner supplies the
// sublogger and the shared HTTP client.
func NewUBA(station string, cfg *Config) lm.LooperFactory {
	return func(logger *zerolog.Logger, client *lm.HttpClient) lm.Looper {
		return &UBA{
			client:  client,
			logger:  logger,
			station: station,
			cfg:     cfg,
			marks:   map[string]time.Time{},
		}
	}
}

func (u *UBA) Init() {
	u.loc, u.initErr = uba.FixedOffsetLocation(u.cfg.Offset)
	if u.initErr != nil {
		u.logger.Error().Err(u.initErr).Msg("bad utc offset")
		return
	}

	u.tables, u.initErr = uba.NewTables(u.cfg.Components, u.cfg.IndexNames)
	if u.initErr != nil {
		u.logger.Error().Err(u.initErr).Msg("bad lookup tables")
		return
	}

	u.base, u.initErr = url.Parse(u.cfg.BaseURL)
	if u.initErr != nil {
		u.logger.Error().Err(u.initErr).Msg("couldn't parse URL")
		return
	}

	switch u.cfg.API {
	case APIAirQuality:
		u.legacy = false
	case APIMeasures:
		u.legacy = true
	default:
		u.initErr = fmt.Errorf("unknown api shape %q", u.cfg.API)
		u.logger.Error().Err(u.initErr).Msg("bad api shape")
		return
	}

	u.engine = uba.NewEngine(u.tables, u.loc, *u.logger)
}

func (u *UBA) Poll(ctx context.Context, store store.Client) error {
	if u.initErr != nil {
		return fmt.Errorf("not initialized: %w", u.initErr)
	}

	if !u.recovered {
		u.recoverMarks(ctx, store)
		u.recovered = true
	}

	if u.legacy {
		return u.pollMeasures(ctx, store)
	}
	return u.pollAirQuality(ctx, store)
}

// recoverMarks restores high-water-marks from the store after a restart, so
// a running deployment does not re-emit everything the backfill window
// covers. Best effort: a miss just means a cold start.
func (u *UBA) recoverMarks(ctx context.Context, store store.Client) {
	lookback := time.Duration(u.cfg.Retention)*24*time.Hour + time.Hour

	names := []string{uba.IndexReading}
	if u.legacy {
		names = u.tables.ComponentNames()
	}

	for _, name := range names {
		if ts, ok := store.LastTimestamp(ctx, name, u.tags(), lookback); ok {
			u.logger.Info().Str("name", name).Time("mark", ts).Msg("recovered mark")
			u.marks[name] = ts
		}
	}
}

func (u *UBA) pollAirQuality(ctx context.Context, store store.Client) error {
	mark, err := u.ingestOnce(ctx, store, uba.NewAirQualityAdapter(), "airquality/json", uba.IndexReading, nil)
	if err != nil {
		return err
	}
	if u.cfg.LastUpdate {
		u.writeLastUpdate(ctx, store, "last_update", mark)
	}
	return nil
}

// pollMeasures is the legacy shape: one request per component. A failure
// aborts the cycle; marks of components already processed stay advanced, so
// the retry only re-fetches what is still missing.
func (u *UBA) pollMeasures(ctx context.Context, store store.Client) error {
	for _, name := range u.tables.ComponentNames() {
		code, _ := u.tables.ComponentCode(name)
		extra := map[string]string{
			"component": strconv.Itoa(code),
			"scope":     u.cfg.Scope,
		}

		mark, err := u.ingestOnce(ctx, store, uba.NewMeasuresAdapter(code, name), "measures/json", name, extra)
		if err != nil {
			return err
		}
		if u.cfg.LastUpdate {
			u.writeLastUpdate(ctx, store, "last_update_"+strings.ToLower(name), mark)
		}
	}
	return nil
}

// ingestOnce runs one fetch-decode-ingest-write pass for one stream, keyed by
// markKey in the high-water-mark map. The mark moves only after every event
// of the batch reached the store.
func (u *UBA) ingestOnce(ctx context.Context, store store.Client, adapter uba.ShapeAdapter, path, markKey string, extra map[string]string) (time.Time, error) {
	mark := u.marks[markKey]
	from, to := uba.ComputeWindow(time.Now(), mark, u.cfg.Retention)

	body, err := u.client.Get(ctx, u.logger, lm.URLOpt(u.queryURL(path, from, to, extra)))
	if err != nil {
		return mark, err
	}
	if len(body) == 0 {
		return mark, uba.ErrEmptyBody
	}

	samples, err := adapter.Samples(body, u.station)
	if err != nil {
		return mark, err
	}

	events, mark, err := u.engine.Ingest(samples, mark)
	if err != nil {
		return mark, err
	}

	tags := u.tags()
	for _, ev := range events {
		store.WriteIfChanged(ctx, ev.Time, ev.Name, ev.Value, tags)
	}
	u.marks[markKey] = mark
	u.logger.Debug().Str("shape", adapter.Name()).Int("events", len(events)).Time("mark", mark).Msg("ingested")
	return mark, nil
}

// writeLastUpdate publishes when the series last produced data, as a
// station-local timestamp string stamped at write time rather than event
// time. Nothing is written before the first ingest.
func (u *UBA) writeLastUpdate(ctx context.Context, store store.Client, name string, mark time.Time) {
	if mark.IsZero() {
		return
	}
	store.Write(ctx, time.Now(), name, uba.FormatStationTime(mark, u.loc), u.tags())
}

func (u *UBA) queryURL(path string, from, to time.Time, extra map[string]string) *url.URL {
	fromDate, fromHour := uba.HourEndingFrom(from.In(u.loc))
	toDate, toHour := uba.HourEndingTo(to.In(u.loc))

	q := url.Values{}
	q.Set("date_from", fromDate)
	q.Set("time_from", strconv.Itoa(fromHour))
	q.Set("date_to", toDate)
	q.Set("time_to", strconv.Itoa(toHour))
	q.Set("station", u.station)
	for k, v := range extra {
		q.Set(k, v)
	}

	reqURL := *u.base
	reqURL.Path = strings.TrimSuffix(reqURL.Path, "/") + "/" + path
	reqURL.RawQuery = q.Encode()
	return &reqURL
}

func (u *UBA) tags() map[string]string {
	return map[string]string{"station": u.station}
}
