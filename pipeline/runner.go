package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/leadsift/leadsift/app_config"
	"github.com/leadsift/leadsift/classifier"
	"github.com/leadsift/leadsift/model"
	Logger "github.com/leadsift/leadsift/utils/log"
)

// ContentFetcher retrieves recent posts for one topic.
type ContentFetcher interface {
	FetchTopic(topic string) ([]model.ContentItem, error)
}

// LeadRepository is the persistence surface the runner needs. *store.LeadStore
// implements it; tests inject an in-memory fake.
type LeadRepository interface {
	FilterNewExternalIds(ids []string) ([]string, error)
	CreateLead(item model.ContentItem, subscriptionId string) (*model.Lead, bool, error)
	BeginProcessing(leadId string) (bool, error)
	FinishDiscarded(leadId string) error
	FinishReady(leadId string, scoring classifier.Scoring) error
	FinishError(leadId string) error
	MarkNotified(leadId string) (bool, error)
	ActiveSubscriptions() ([]model.Subscription, error)
	SettingForOwner(ownerId string) (*model.OwnerSetting, error)
}

// OpportunityClassifier is the two-stage AI surface. *classifier.Classifier
// implements it.
type OpportunityClassifier interface {
	CheckRelevance(ctx context.Context, item model.ContentItem, productContext string) bool
	ScoreOpportunity(ctx context.Context, item model.ContentItem, productContext string) classifier.Scoring
	IsHighScore(s classifier.Scoring) bool
}

// NotificationDispatcher delivers one ready lead across channels.
type NotificationDispatcher interface {
	Dispatch(lead *model.Lead, setting *model.OwnerSetting) (sent int, failed int)
}

// RunReport is the structured summary returned by a full pipeline run, even
// a partially failed one.
type RunReport struct {
	AlertsProcessed     int       `json:"alertsProcessed"`
	TotalNewLeads       int       `json:"totalNewLeads"`
	NotificationsSent   int       `json:"notificationsSent"`
	NotificationsFailed int       `json:"notificationsFailed"`
	Aborted             bool      `json:"aborted"`
	StartedAt           time.Time `json:"startedAt"`
	FinishedAt          time.Time `json:"finishedAt"`
}

// BatchSummary is the result of running steps dedup→filter→store→classify on
// one batch of posts for one subscription.
type BatchSummary struct {
	Processed           int `json:"processed"`
	New                 int `json:"new"`
	Duplicates          int `json:"duplicates"`
	NotificationsSent   int `json:"notificationsSent"`
	NotificationsFailed int `json:"notificationsFailed"`
}

// Runner drives the whole scrape→filter→classify→notify chain. Topics and
// posts are processed strictly sequentially so the per-run cap and the
// circuit breaker are evaluated deterministically between iterations; the
// only concurrency is the best-effort notification fan-out.
type Runner struct {
	Fetcher    ContentFetcher
	Repo       LeadRepository
	Dedup      *Deduplicator
	Classifier OpportunityClassifier
	Dispatcher NotificationDispatcher
	Config     app_config.PipelineAppConfig

	// injectable for tests
	Now   func() time.Time
	Sleep func(time.Duration)
}

func NewRunner(
	fetcher ContentFetcher,
	repo LeadRepository,
	dedup *Deduplicator,
	cls OpportunityClassifier,
	dispatcher NotificationDispatcher,
	cfg app_config.PipelineAppConfig,
) *Runner {
	return &Runner{
		Fetcher:    fetcher,
		Repo:       repo,
		Dedup:      dedup,
		Classifier: cls,
		Dispatcher: dispatcher,
		Config:     cfg,
		Now:        time.Now,
		Sleep:      time.Sleep,
	}
}

// RunAll executes one full run over every active subscription (the cron
// orchestrated variant). Fetch failures feed the circuit breaker; everything
// downstream of a successful fetch degrades per-item, never aborting the run.
func (r *Runner) RunAll(ctx context.Context) RunReport {
	report := RunReport{StartedAt: r.Now()}
	defer func() {
		Logger.Log.WithFields(logrus.Fields{
			"alerts_processed": report.AlertsProcessed,
			"new_leads":        report.TotalNewLeads,
			"aborted":          report.Aborted,
		}).Info("pipeline run finished")
	}()

	governor := NewRunGovernor(r.Config).WithSleepFunc(r.Sleep)
	fetchDeadline := report.StartedAt.Add(time.Duration(r.Config.FETCH_TIME_BUDGET_SECONDS) * time.Second)

	subs, err := r.Repo.ActiveSubscriptions()
	if err != nil {
		Logger.Log.Error("fail to load active subscriptions: ", err)
		report.Aborted = true
		report.FinishedAt = r.Now()
		return report
	}

	for _, sub := range subs {
		if governor.Tripped() || governor.CapReached() {
			report.Aborted = governor.Tripped()
			break
		}
		if r.Now().After(fetchDeadline) {
			Logger.Log.Warn("fetch time budget exceeded, skipping remaining topics")
			break
		}

		items, err := r.Fetcher.FetchTopic(sub.Topic)
		if err != nil {
			Logger.Log.WithFields(logrus.Fields{"topic": sub.Topic, "subscription_id": sub.Id}).
				Error("topic fetch failed: ", err)
			governor.RecordFetchFailure()
			report.AlertsProcessed++
			continue
		}
		governor.RecordFetchSuccess()

		setting, err := r.Repo.SettingForOwner(sub.OwnerID)
		if err != nil {
			Logger.Log.WithFields(logrus.Fields{"owner_id": sub.OwnerID}).
				Error("fail to load owner setting, skipping subscription: ", err)
			report.AlertsProcessed++
			continue
		}

		summary := r.ProcessBatch(ctx, governor, &sub, setting, items)
		report.AlertsProcessed++
		report.TotalNewLeads += summary.New
		report.NotificationsSent += summary.NotificationsSent
		report.NotificationsFailed += summary.NotificationsFailed
	}

	report.Aborted = report.Aborted || governor.Tripped()
	report.FinishedAt = r.Now()
	return report
}

// ProcessBatch runs dedup → keyword filter → store → classify → notify for
// one subscription's batch of posts. This is the canonical ingestion path;
// the pull-model /ingest endpoint calls it with externally fetched posts.
func (r *Runner) ProcessBatch(
	ctx context.Context,
	governor *RunGovernor,
	sub *model.Subscription,
	setting *model.OwnerSetting,
	items []model.ContentItem,
) BatchSummary {
	summary := BatchSummary{Processed: len(items)}

	fresh, err := r.Dedup.FilterNew(items)
	if err != nil {
		Logger.Log.WithFields(logrus.Fields{"subscription_id": sub.Id}).
			Error("dedup lookup failed, skipping batch: ", err)
		return summary
	}
	summary.Duplicates = len(items) - len(fresh)

	keywords := sub.KeywordList()
	notifiable := []*model.Lead{}
	storedIds := []string{}

	for _, item := range fresh {
		if governor.CapReached() {
			Logger.Log.WithFields(logrus.Fields{"subscription_id": sub.Id, "leads_saved": governor.LeadsSaved()}).
				Warn("per-run lead cap reached, stopping post processing")
			break
		}
		if !ItemMatchesKeywords(item.Title, item.Body, keywords) {
			continue
		}

		lead, created, err := r.Repo.CreateLead(item, sub.Id)
		if err != nil {
			Logger.Log.WithFields(logrus.Fields{"external_id": item.ExternalId}).
				Error("fail to store lead, skipping item: ", err)
			continue
		}
		if !created {
			// Unique violation race: another run or subscriber stored it
			// first. Benign.
			summary.Duplicates++
			continue
		}
		summary.New++
		governor.LeadSaved()
		storedIds = append(storedIds, item.ExternalId)

		if ready, scoring := r.ClassifyLead(ctx, lead, item, setting.ProductContext); ready && r.Classifier.IsHighScore(scoring) {
			lead.OpportunityScore = &scoring.Score
			lead.OpportunityType = scoring.OpportunityType
			lead.OpportunityReason = scoring.ShortReason
			lead.SuggestedAngle = scoring.SuggestedAngle
			notifiable = append(notifiable, lead)
		}
	}

	r.Dedup.MarkSeen(storedIds)

	sent, failed := r.NotifyLeads(notifiable, setting)
	summary.NotificationsSent = sent
	summary.NotificationsFailed = failed
	return summary
}

// ClassifyLead drives the two classifier stages for one stored lead,
// transitioning its status along the way. Returns whether the lead ended
// ready, with its scoring. Classification failures never propagate; they end
// the lead in discarded or a zero-score ready state.
func (r *Runner) ClassifyLead(ctx context.Context, lead *model.Lead, item model.ContentItem, productContext string) (bool, classifier.Scoring) {
	locked, err := r.Repo.BeginProcessing(lead.Id)
	if err != nil {
		Logger.Log.WithFields(logrus.Fields{"lead_id": lead.Id}).
			Error("fail to lock lead for classification: ", err)
		return false, classifier.Scoring{}
	}
	if !locked {
		// Someone else holds it. Skip, not crash.
		return false, classifier.Scoring{}
	}

	if !r.Classifier.CheckRelevance(ctx, item, productContext) {
		if err := r.Repo.FinishDiscarded(lead.Id); err != nil {
			Logger.Log.WithFields(logrus.Fields{"lead_id": lead.Id}).
				Error("fail to discard lead: ", err)
		}
		return false, classifier.Scoring{}
	}

	scoring := r.Classifier.ScoreOpportunity(ctx, item, productContext)
	if err := r.Repo.FinishReady(lead.Id, scoring); err != nil {
		Logger.Log.WithFields(logrus.Fields{"lead_id": lead.Id}).
			Error("fail to persist scoring: ", err)
		if err := r.Repo.FinishError(lead.Id); err != nil {
			Logger.Log.WithFields(logrus.Fields{"lead_id": lead.Id}).
				Error("fail to mark lead errored: ", err)
		}
		return false, classifier.Scoring{}
	}
	return true, scoring
}

// NotifyLeads fans notification out over the batch of ready leads. Per-lead
// attempts run concurrently and settle independently; an individual failure
// never fails the batch. Each lead's notification flag is flipped exactly
// once after all its channel attempts, win or lose.
func (r *Runner) NotifyLeads(leads []*model.Lead, setting *model.OwnerSetting) (sent int, failed int) {
	if len(leads) == 0 {
		return 0, 0
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	for _, lead := range leads {
		wg.Add(1)
		go func(lead *model.Lead) {
			defer wg.Done()

			s, f := r.Dispatcher.Dispatch(lead, setting)
			if _, err := r.Repo.MarkNotified(lead.Id); err != nil {
				Logger.Log.WithFields(logrus.Fields{"lead_id": lead.Id}).
					Error("fail to mark lead notified: ", err)
			}

			mu.Lock()
			sent += s
			failed += f
			mu.Unlock()
		}(lead)
	}
	wg.Wait()
	return sent, failed
}
