package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	lm "github.com/hausgeist/luftmetrics/internal"
	"github.com/hausgeist/luftmetrics/internal/endpoint"
	"github.com/hausgeist/luftmetrics/internal/looper"
	"github.com/hausgeist/luftmetrics/internal/store"
)

var log = zerolog.New(
	zerolog.ConsoleWriter{
		Out: lm.LevelWriter{
			Std: os.Stdout,
			Err: os.Stderr,
		},
	}).
	Level(zerolog.InfoLevel).
	With().
	Timestamp().
	Logger()

var mainCmd = &cobra.Command{
	Run:           run,
	SilenceErrors: true,
}

var (
	httpAddr    string
	httpTimeout time.Duration
	influx      *store.InfluxClient
	ubaCfg      *looper.Config
)

func init() {
	flags := mainCmd.Flags()
	flags.StringVar(&httpAddr, "http.addr", ":7777", "Listen address")
	flags.DurationVar(&httpTimeout, "http.timeout", 10*time.Second, "Fetch timeout")

	influx = store.NewInfluxClient(flags, &log)
	ubaCfg = looper.RegisterFlags(flags)
}

func main() {
	if err := mainCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("failed to start")
	}
}

// applyEnv fills unset flags from the environment: uba.stations becomes
// LM_UBA_STATIONS. A .env file in the working directory is loaded first.
func applyEnv(flags *pflag.FlagSet) {
	_ = godotenv.Load()

	replacer := strings.NewReplacer(".", "_", "-", "_")
	flags.VisitAll(func(f *pflag.Flag) {
		if f.Changed {
			return
		}
		if val, ok := os.LookupEnv("LM_" + strings.ToUpper(replacer.Replace(f.Name))); ok {
			if err := flags.Set(f.Name, val); err != nil {
				log.Error().Err(err).Str("flag", f.Name).Msg("bad env value")
			}
		}
	})
}

func run(cmd *cobra.Command, args []string) {
	applyEnv(cmd.Flags())

	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, syscall.SIGTERM, syscall.SIGINT)

	ctx, done := context.WithCancel(context.TODO())

	var storage store.Client = influx
	if !influx.Configured() {
		log.Info().Msg("no influxdb destination, writing to log")
		storage = store.NewLogStore(&log)
	}
	storage.Init()

	f := &lm.RunnerFactory{
		Client: lm.NewHttpClient(httpTimeout),
		Logger: &log,
	}

	var loopRunners []*lm.LoopRunner
	for _, station := range ubaCfg.Stations {
		runner := f.MakeRunner("uba:"+station, ubaCfg.Settings(), looper.NewUBA(station, ubaCfg))
		loopRunners = append(loopRunners, runner)
	}
	if len(loopRunners) == 0 {
		log.Warn().Msg("no stations configured")
	}

	var wg sync.WaitGroup
	for _, runner := range loopRunners {
		wg.Add(1)
		go func(runner *lm.LoopRunner) {
			defer wg.Done()
			runner.Run(ctx, storage)
		}(runner)
	}

	server := http.Server{
		Addr:    httpAddr,
		Handler: endpoint.NewOps(&log, loopRunners).Router(),
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info().Str("addr", httpAddr).Msg("starting listener")
		if err := server.ListenAndServe(); err != nil {
			if err != http.ErrServerClosed {
				log.Error().Err(err).Msg("failed to start listener")
			}
		}
	}()

	<-stopChan

	log.Info().Msg("shutting down")
	server.Close()
	done()

	log.Info().Msg("waiting for pollers to stop")
	wg.Wait()

	log.Info().Msg("stopped")
}
