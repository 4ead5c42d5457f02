package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/leadsift/leadsift/app_config"
)

func governorForTest(maxLeads int, breakerThreshold int) (*RunGovernor, *[]time.Duration) {
	cfg := app_config.DefaultPipelineAppConfig()
	cfg.MAX_POSTS_PER_RUN = maxLeads
	cfg.BREAKER_THRESHOLD = breakerThreshold
	cfg.BACKOFF_SECONDS = 5

	slept := []time.Duration{}
	g := NewRunGovernor(cfg).WithSleepFunc(func(d time.Duration) {
		slept = append(slept, d)
	})
	return g, &slept
}

func TestLeadCapIsAHardStop(t *testing.T) {
	g, _ := governorForTest(3, 3)

	assert.False(t, g.CapReached())
	g.LeadSaved()
	g.LeadSaved()
	assert.False(t, g.CapReached())
	g.LeadSaved()
	assert.True(t, g.CapReached())
	assert.Equal(t, 3, g.LeadsSaved())
}

func TestBreakerTripsAtThreshold(t *testing.T) {
	g, slept := governorForTest(10, 3)

	g.RecordFetchFailure()
	g.RecordFetchFailure()
	assert.False(t, g.Tripped())
	// Sub-threshold failures pause before the next topic.
	assert.Len(t, *slept, 2)
	assert.Equal(t, 5*time.Second, (*slept)[0])

	g.RecordFetchFailure()
	assert.True(t, g.Tripped())
	// The tripping failure aborts, it does not sleep.
	assert.Len(t, *slept, 2)
}

func TestBreakerResetsOnSuccess(t *testing.T) {
	g, _ := governorForTest(10, 3)

	g.RecordFetchFailure()
	g.RecordFetchFailure()
	// Any success resets the consecutive counter, an empty fetch included.
	g.RecordFetchSuccess()
	g.RecordFetchFailure()
	g.RecordFetchFailure()
	assert.False(t, g.Tripped())
	g.RecordFetchFailure()
	assert.True(t, g.Tripped())
}
