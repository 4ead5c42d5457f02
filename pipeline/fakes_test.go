package pipeline

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/leadsift/leadsift/classifier"
	"github.com/leadsift/leadsift/model"
)

// fakeLeadRepo is an in-memory LeadRepository for runner tests.
type fakeLeadRepo struct {
	mu         sync.Mutex
	leads      map[string]*model.Lead // by lead id
	byExternal map[string]string      // external post id -> lead id
	subs       []model.Subscription
	settings   map[string]*model.OwnerSetting
}

func newFakeLeadRepo() *fakeLeadRepo {
	return &fakeLeadRepo{
		leads:      map[string]*model.Lead{},
		byExternal: map[string]string{},
		settings:   map[string]*model.OwnerSetting{},
	}
}

func (f *fakeLeadRepo) FilterNewExternalIds(ids []string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fresh := []string{}
	for _, id := range ids {
		if _, ok := f.byExternal[id]; !ok {
			fresh = append(fresh, id)
		}
	}
	return fresh, nil
}

func (f *fakeLeadRepo) CreateLead(item model.ContentItem, subscriptionId string) (*model.Lead, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if existingId, ok := f.byExternal[item.ExternalId]; ok {
		return f.leads[existingId], false, nil
	}
	lead := &model.Lead{
		Id:               uuid.New().String(),
		ExternalPostId:   item.ExternalId,
		SubscriptionID:   subscriptionId,
		Title:            item.Title,
		Body:             item.Body,
		Url:              item.Url,
		Author:           item.Author,
		Topic:            item.Topic,
		ProcessingStatus: model.ProcessingStatusNew,
		DisplayStatus:    model.DisplayStatusInbox,
	}
	f.leads[lead.Id] = lead
	f.byExternal[item.ExternalId] = lead.Id
	return lead, true, nil
}

func (f *fakeLeadRepo) BeginProcessing(leadId string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	lead, ok := f.leads[leadId]
	if !ok || lead.ProcessingStatus != model.ProcessingStatusNew {
		return false, nil
	}
	lead.ProcessingStatus = model.ProcessingStatusProcessing
	return true, nil
}

func (f *fakeLeadRepo) FinishDiscarded(leadId string) error {
	return f.finish(leadId, model.ProcessingStatusDiscarded, nil)
}

func (f *fakeLeadRepo) FinishReady(leadId string, scoring classifier.Scoring) error {
	return f.finish(leadId, model.ProcessingStatusReady, &scoring)
}

func (f *fakeLeadRepo) FinishError(leadId string) error {
	return f.finish(leadId, model.ProcessingStatusError, nil)
}

func (f *fakeLeadRepo) finish(leadId string, status string, scoring *classifier.Scoring) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	lead, ok := f.leads[leadId]
	if !ok || lead.ProcessingStatus != model.ProcessingStatusProcessing {
		return nil
	}
	lead.ProcessingStatus = status
	if scoring != nil {
		lead.OpportunityScore = &scoring.Score
		lead.OpportunityType = scoring.OpportunityType
		lead.OpportunityReason = scoring.ShortReason
		lead.SuggestedAngle = scoring.SuggestedAngle
	}
	return nil
}

func (f *fakeLeadRepo) MarkNotified(leadId string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	lead, ok := f.leads[leadId]
	if !ok || lead.NotificationSent {
		return false, nil
	}
	lead.NotificationSent = true
	return true, nil
}

func (f *fakeLeadRepo) ActiveSubscriptions() ([]model.Subscription, error) {
	return f.subs, nil
}

func (f *fakeLeadRepo) SettingForOwner(ownerId string) (*model.OwnerSetting, error) {
	if s, ok := f.settings[ownerId]; ok {
		return s, nil
	}
	return &model.OwnerSetting{OwnerID: ownerId}, nil
}

func (f *fakeLeadRepo) leadByExternalId(externalId string) *model.Lead {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id, ok := f.byExternal[externalId]; ok {
		return f.leads[id]
	}
	return nil
}

// fakeFetcher serves canned items per topic, or a canned error.
type fakeFetcher struct {
	items      map[string][]model.ContentItem
	err        error
	fetchCalls int
}

func (f *fakeFetcher) FetchTopic(topic string) ([]model.ContentItem, error) {
	f.fetchCalls++
	if f.err != nil {
		return nil, f.err
	}
	return f.items[topic], nil
}

// fakeClassifier answers stage 1 with a fixed verdict and stage 2 with a
// fixed scoring, counting calls to each stage.
type fakeClassifier struct {
	relevant    bool
	scoring     classifier.Scoring
	stage1Calls int
	stage2Calls int
}

func (f *fakeClassifier) CheckRelevance(ctx context.Context, item model.ContentItem, productContext string) bool {
	f.stage1Calls++
	return f.relevant
}

func (f *fakeClassifier) ScoreOpportunity(ctx context.Context, item model.ContentItem, productContext string) classifier.Scoring {
	f.stage2Calls++
	return f.scoring
}

func (f *fakeClassifier) IsHighScore(s classifier.Scoring) bool {
	return s.IsOpportunity && s.Score >= 70
}

// fakeDispatcher records dispatched leads and reports a fixed tally.
type fakeDispatcher struct {
	mu         sync.Mutex
	dispatched []*model.Lead
	sent       int
	failed     int
}

func (f *fakeDispatcher) Dispatch(lead *model.Lead, setting *model.OwnerSetting) (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dispatched = append(f.dispatched, lead)
	return f.sent, f.failed
}
