package luftmetrics

import (
	"time"

	"github.com/rs/zerolog"
)

type LooperFactory = func(*zerolog.Logger, *HttpClient) Looper

// RunnerSettings are the per-runner knobs resolved from flags. They are read
// after flag parsing, so runners can be built per station once the station
// list is known.
type RunnerSettings struct {
	Freq       time.Duration
	RetryShort time.Duration
	RetryLong  time.Duration
	Enabled    bool
}

type RunnerFactory struct {
	Client *HttpClient
	Logger *zerolog.Logger
}

func (f *RunnerFactory) MakeRunner(name string, settings RunnerSettings, factory LooperFactory) *LoopRunner {
	logger := f.Logger.With().Str("looper", name).Logger()

	return &LoopRunner{
		name:     name,
		logger:   &logger,
		looper:   factory(&logger, f.Client),
		pollFreq: settings.Freq,
		enabled:  settings.Enabled,
		retry:    NewRetryPolicy(settings.RetryShort, settings.RetryLong),
		status:   Status{Name: name, State: StateInitialized, Enabled: settings.Enabled},
	}
}
