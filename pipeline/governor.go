package pipeline

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/leadsift/leadsift/app_config"
	Logger "github.com/leadsift/leadsift/utils/log"
)

// RunGovernor enforces the two per-run safety caps:
//
//   - a hard ceiling on leads saved in the run, because every saved lead
//     implies paid classifier calls downstream
//   - a circuit breaker on consecutive topic-fetch failures, protecting the
//     caller's network identity from a source that started blocking
//
// Callers must consult CapReached and Tripped at every loop boundary where
// either could be exceeded (topic loop, post loop, subscriber loop).
type RunGovernor struct {
	maxLeads         int
	breakerThreshold int
	backoff          time.Duration

	leadsSaved          int
	consecutiveFailures int
	tripped             bool

	// injectable for tests
	sleep func(time.Duration)
}

func NewRunGovernor(cfg app_config.PipelineAppConfig) *RunGovernor {
	return &RunGovernor{
		maxLeads:         cfg.MAX_POSTS_PER_RUN,
		breakerThreshold: cfg.BREAKER_THRESHOLD,
		backoff:          time.Duration(cfg.BACKOFF_SECONDS) * time.Second,
		sleep:            time.Sleep,
	}
}

// WithSleepFunc replaces the backoff sleep, for tests.
func (g *RunGovernor) WithSleepFunc(sleep func(time.Duration)) *RunGovernor {
	g.sleep = sleep
	return g
}

// LeadSaved must be called once per lead persisted in this run.
func (g *RunGovernor) LeadSaved() {
	g.leadsSaved++
}

func (g *RunGovernor) LeadsSaved() int {
	return g.leadsSaved
}

// CapReached is a hard stop, not a throttle. Once true, all further topic and
// post processing must end for the run.
func (g *RunGovernor) CapReached() bool {
	return g.leadsSaved >= g.maxLeads
}

// RecordFetchSuccess resets the breaker counter. An empty-but-successful
// fetch counts as success.
func (g *RunGovernor) RecordFetchSuccess() {
	g.consecutiveFailures = 0
}

// RecordFetchFailure bumps the consecutive failure counter. At the threshold
// the breaker trips and the run must abort; below it the governor sleeps the
// configured backoff so the next topic isn't fired at a struggling source
// immediately.
func (g *RunGovernor) RecordFetchFailure() {
	g.consecutiveFailures++
	if g.consecutiveFailures >= g.breakerThreshold {
		g.tripped = true
		Logger.Log.WithFields(logrus.Fields{"consecutive_failures": g.consecutiveFailures}).
			Error("circuit breaker tripped, aborting run")
		return
	}
	g.sleep(g.backoff)
}

// Tripped reports whether the breaker ended the run.
func (g *RunGovernor) Tripped() bool {
	return g.tripped
}
