package endpoint

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog"

	lm "github.com/hausgeist/luftmetrics/internal"
)

// Ops serves the liveness and poller status endpoints.
type Ops struct {
	logger  *zerolog.Logger
	runners []*lm.LoopRunner
}

func NewOps(logger *zerolog.Logger, runners []*lm.LoopRunner) *Ops {
	return &Ops{logger: logger, runners: runners}
}

// Router assembles the ops routes, rate limited per client IP with the real
// IP taken from proxy headers.
func (o *Ops) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(httprate.Limit(60, time.Minute, httprate.WithKeyFuncs(httprate.KeyByRealIP)))

	r.Get("/healthz", o.health)
	r.Get("/status", o.status)
	return r
}

func (o *Ops) health(w http.ResponseWriter, _ *http.Request) {
	o.writeJSON(w, map[string]string{"status": "ok"})
}

func (o *Ops) status(w http.ResponseWriter, _ *http.Request) {
	statuses := make([]lm.Status, 0, len(o.runners))
	for _, runner := range o.runners {
		statuses = append(statuses, runner.Status())
	}
	o.writeJSON(w, statuses)
}

func (o *Ops) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		o.logger.Error().Err(err).Msg("encode error")
	}
}
