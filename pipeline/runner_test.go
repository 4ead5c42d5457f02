package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadsift/leadsift/app_config"
	"github.com/leadsift/leadsift/classifier"
	"github.com/leadsift/leadsift/model"
)

func testConfig() app_config.PipelineAppConfig {
	cfg := app_config.DefaultPipelineAppConfig()
	cfg.MAX_POSTS_PER_RUN = 10
	cfg.BREAKER_THRESHOLD = 3
	cfg.BACKOFF_SECONDS = 0
	return cfg
}

func testRunner(fetcher *fakeFetcher, repo *fakeLeadRepo, cls *fakeClassifier, dispatcher *fakeDispatcher, cfg app_config.PipelineAppConfig) *Runner {
	r := NewRunner(fetcher, repo, NewDeduplicator(repo, nil), cls, dispatcher, cfg)
	r.Sleep = func(time.Duration) {}
	return r
}

func demoSubscription(keywords string) model.Subscription {
	return model.Subscription{Id: "sub1", OwnerID: "owner1", Topic: "demo", Keywords: keywords, Active: true}
}

func TestKeywordGateBeforeClassification(t *testing.T) {
	// Topic "demo" returns 2 posts; only the one mentioning the keyword may
	// reach the classifier.
	repo := newFakeLeadRepo()
	repo.subs = []model.Subscription{demoSubscription("hiring")}
	fetcher := &fakeFetcher{items: map[string][]model.ContentItem{
		"demo": {
			{ExternalId: "a1", Title: "Hiring a dev", Body: "need help", Author: "u1", Topic: "demo"},
			{ExternalId: "b2", Title: "My cat pics", Body: "fluffy", Author: "u2", Topic: "demo"},
		},
	}}
	cls := &fakeClassifier{relevant: true, scoring: classifier.Scoring{IsOpportunity: true, Score: 90, OpportunityType: model.OpportunityDirectBuyingIntent}}
	dispatcher := &fakeDispatcher{sent: 1}

	report := testRunner(fetcher, repo, cls, dispatcher, testConfig()).RunAll(context.Background())

	assert.Equal(t, 1, report.TotalNewLeads)
	assert.Equal(t, 1, cls.stage1Calls)
	require.NotNil(t, repo.leadByExternalId("a1"))
	assert.Nil(t, repo.leadByExternalId("b2"))
	assert.Equal(t, model.ProcessingStatusReady, repo.leadByExternalId("a1").ProcessingStatus)
}

func TestStage1RejectionDiscardsWithoutStage2(t *testing.T) {
	repo := newFakeLeadRepo()
	repo.subs = []model.Subscription{demoSubscription("hiring")}
	fetcher := &fakeFetcher{items: map[string][]model.ContentItem{
		"demo": {{ExternalId: "a1", Title: "Hiring a dev", Author: "u1", Topic: "demo"}},
	}}
	cls := &fakeClassifier{relevant: false}
	dispatcher := &fakeDispatcher{}

	testRunner(fetcher, repo, cls, dispatcher, testConfig()).RunAll(context.Background())

	lead := repo.leadByExternalId("a1")
	require.NotNil(t, lead)
	assert.Equal(t, model.ProcessingStatusDiscarded, lead.ProcessingStatus)
	assert.Equal(t, 0, cls.stage2Calls)
	assert.Empty(t, dispatcher.dispatched)
	assert.False(t, lead.NotificationSent)
}

func TestLowScoreLeadIsReadyButNotNotified(t *testing.T) {
	repo := newFakeLeadRepo()
	repo.subs = []model.Subscription{demoSubscription("hiring")}
	fetcher := &fakeFetcher{items: map[string][]model.ContentItem{
		"demo": {{ExternalId: "a1", Title: "Hiring a dev", Author: "u1", Topic: "demo"}},
	}}
	cls := &fakeClassifier{relevant: true, scoring: classifier.Scoring{IsOpportunity: true, Score: 40}}
	dispatcher := &fakeDispatcher{}

	testRunner(fetcher, repo, cls, dispatcher, testConfig()).RunAll(context.Background())

	lead := repo.leadByExternalId("a1")
	require.NotNil(t, lead)
	assert.Equal(t, model.ProcessingStatusReady, lead.ProcessingStatus)
	assert.Empty(t, dispatcher.dispatched)
}

func TestPerRunLeadCap(t *testing.T) {
	repo := newFakeLeadRepo()
	repo.subs = []model.Subscription{demoSubscription("post")}
	fetcher := &fakeFetcher{items: map[string][]model.ContentItem{
		"demo": {
			{ExternalId: "p1", Title: "post one", Author: "u", Topic: "demo"},
			{ExternalId: "p2", Title: "post two", Author: "u", Topic: "demo"},
			{ExternalId: "p3", Title: "post three", Author: "u", Topic: "demo"},
		},
	}}
	cls := &fakeClassifier{relevant: true, scoring: classifier.Scoring{IsOpportunity: true, Score: 90, OpportunityType: model.OpportunityProblemAwareness}}

	cfg := testConfig()
	cfg.MAX_POSTS_PER_RUN = 2
	report := testRunner(fetcher, repo, cls, &fakeDispatcher{sent: 1}, cfg).RunAll(context.Background())

	assert.Equal(t, 2, report.TotalNewLeads)
}

func TestCircuitBreakerAbortsRun(t *testing.T) {
	repo := newFakeLeadRepo()
	for i := 0; i < 5; i++ {
		sub := demoSubscription("kw")
		sub.Id = string(rune('a' + i))
		repo.subs = append(repo.subs, sub)
	}
	fetcher := &fakeFetcher{err: errors.New("blocked")}

	report := testRunner(fetcher, repo, &fakeClassifier{}, &fakeDispatcher{}, testConfig()).RunAll(context.Background())

	assert.True(t, report.Aborted)
	// Threshold is 3: exactly 3 topics were attempted, the rest skipped.
	assert.Equal(t, 3, fetcher.fetchCalls)
	assert.Equal(t, 0, report.TotalNewLeads)
}

func TestSecondRunIsIdempotent(t *testing.T) {
	repo := newFakeLeadRepo()
	sub := demoSubscription("hiring")
	setting := &model.OwnerSetting{OwnerID: "owner1"}
	batch := []model.ContentItem{{ExternalId: "a1", Title: "Hiring a dev", Author: "u1", Topic: "demo"}}
	cls := &fakeClassifier{relevant: true, scoring: classifier.Scoring{IsOpportunity: true, Score: 90, OpportunityType: model.OpportunityDirectBuyingIntent}}
	r := testRunner(&fakeFetcher{}, repo, cls, &fakeDispatcher{sent: 1}, testConfig())

	first := r.ProcessBatch(context.Background(), NewRunGovernor(testConfig()), &sub, setting, batch)
	second := r.ProcessBatch(context.Background(), NewRunGovernor(testConfig()), &sub, setting, batch)

	assert.Equal(t, 1, first.New)
	assert.Equal(t, 0, second.New)
	assert.Equal(t, 1, second.Duplicates)
	// Still exactly one lead row.
	assert.Len(t, repo.leads, 1)
}

func TestNotifyLeadsSettlesAllAndMarksOnce(t *testing.T) {
	repo := newFakeLeadRepo()
	lead1, _, _ := repo.CreateLead(model.ContentItem{ExternalId: "x1", Title: "t"}, "sub1")
	lead2, _, _ := repo.CreateLead(model.ContentItem{ExternalId: "x2", Title: "t"}, "sub1")
	dispatcher := &fakeDispatcher{sent: 2, failed: 1}
	r := testRunner(&fakeFetcher{}, repo, &fakeClassifier{}, dispatcher, testConfig())

	sent, failed := r.NotifyLeads([]*model.Lead{lead1, lead2}, &model.OwnerSetting{})

	assert.Equal(t, 4, sent)
	assert.Equal(t, 2, failed)
	assert.True(t, lead1.NotificationSent)
	assert.True(t, lead2.NotificationSent)

	// Replaying cannot flip the flag again.
	updated, err := repo.MarkNotified(lead1.Id)
	require.NoError(t, err)
	assert.False(t, updated)
}

func TestFetchTimeBudgetSkipsRemainingTopics(t *testing.T) {
	repo := newFakeLeadRepo()
	repo.subs = []model.Subscription{demoSubscription("kw")}
	fetcher := &fakeFetcher{}
	r := testRunner(fetcher, repo, &fakeClassifier{}, &fakeDispatcher{}, testConfig())

	// Every clock read jumps an hour, so the budget is blown before the
	// first topic.
	base := time.Now()
	r.Now = func() time.Time {
		base = base.Add(time.Hour)
		return base
	}

	report := r.RunAll(context.Background())
	assert.Equal(t, 0, fetcher.fetchCalls)
	assert.Equal(t, 0, report.AlertsProcessed)
}
