package store

import (
	"time"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/leadsift/leadsift/classifier"
	"github.com/leadsift/leadsift/model"
)

// LeadStore owns all lead persistence. Status transitions are conditional
// updates ("UPDATE ... WHERE processing_status = ?") with RowsAffected as the
// lock proof, so a second concurrent trigger for the same lead loses the race
// cleanly instead of double-processing.
type LeadStore struct {
	DB *gorm.DB
}

func NewLeadStore(db *gorm.DB) *LeadStore {
	return &LeadStore{DB: db}
}

// FilterNewExternalIds returns the subset of ids with no lead row yet, using
// a single batched IN query. Under overlapping runs this can still let a
// duplicate through; CreateLead's unique index is the backstop.
func (s *LeadStore) FilterNewExternalIds(ids []string) ([]string, error) {
	if len(ids) == 0 {
		return ids, nil
	}

	var existing []string
	if err := s.DB.Model(&model.Lead{}).
		Where("external_post_id IN ?", ids).
		Pluck("external_post_id", &existing).Error; err != nil {
		return nil, errors.Wrap(err, "dedup lookup failed")
	}

	existingSet := map[string]bool{}
	for _, id := range existing {
		existingSet[id] = true
	}

	fresh := []string{}
	for _, id := range ids {
		if !existingSet[id] {
			fresh = append(fresh, id)
		}
	}
	return fresh, nil
}

// CreateLead inserts a lead for a qualifying content item. A conflict on the
// external post id unique index is a benign duplicate (overlapping fetch
// window or another subscriber got there first) and reports created=false
// with nil error.
func (s *LeadStore) CreateLead(item model.ContentItem, subscriptionId string) (lead *model.Lead, created bool, err error) {
	lead = &model.Lead{}
	if err := copier.Copy(lead, &item); err != nil {
		return nil, false, errors.Wrap(err, "fail to map content item onto lead")
	}
	lead.Id = uuid.New().String()
	lead.SubscriptionID = subscriptionId
	lead.ExternalPostId = item.ExternalId
	lead.PostedAt = item.CreatedAt
	lead.CreatedAt = time.Now()
	lead.ProcessingStatus = model.ProcessingStatusNew
	lead.DisplayStatus = model.DisplayStatusInbox

	res := s.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_post_id"}},
		DoNothing: true,
	}).Create(lead)
	if res.Error != nil {
		return nil, false, errors.Wrap(res.Error, "fail to insert lead")
	}
	return lead, res.RowsAffected > 0, nil
}

// BeginProcessing moves a lead from new to processing. Returns false when the
// lead is gone or another trigger already holds it; callers must treat that
// as a skip, not a failure.
func (s *LeadStore) BeginProcessing(leadId string) (bool, error) {
	res := s.DB.Model(&model.Lead{}).
		Where("id = ? AND processing_status = ?", leadId, model.ProcessingStatusNew).
		Update("processing_status", model.ProcessingStatusProcessing)
	if res.Error != nil {
		return false, errors.Wrap(res.Error, "fail to lock lead for processing")
	}
	return res.RowsAffected > 0, nil
}

// FinishDiscarded terminates a lead stage 1 judged not relevant.
func (s *LeadStore) FinishDiscarded(leadId string) error {
	relevance := 0
	return s.transition(leadId, model.ProcessingStatusProcessing, map[string]interface{}{
		"processing_status": model.ProcessingStatusDiscarded,
		"relevance_score":   &relevance,
	})
}

// FinishReady terminates a lead with its stage-2 scoring. All AI-derived
// columns are written in the same update as the status so partial
// classification state can never be observed.
func (s *LeadStore) FinishReady(leadId string, scoring classifier.Scoring) error {
	relevance := 100
	return s.transition(leadId, model.ProcessingStatusProcessing, map[string]interface{}{
		"processing_status":  model.ProcessingStatusReady,
		"relevance_score":    &relevance,
		"opportunity_score":  &scoring.Score,
		"opportunity_type":   scoring.OpportunityType,
		"opportunity_reason": scoring.ShortReason,
		"suggested_angle":    scoring.SuggestedAngle,
	})
}

// FinishError terminates a lead on an unrecoverable failure in the chain.
func (s *LeadStore) FinishError(leadId string) error {
	return s.transition(leadId, model.ProcessingStatusProcessing, map[string]interface{}{
		"processing_status": model.ProcessingStatusError,
	})
}

func (s *LeadStore) transition(leadId string, fromStatus string, updates map[string]interface{}) error {
	res := s.DB.Model(&model.Lead{}).
		Where("id = ? AND processing_status = ?", leadId, fromStatus).
		Updates(updates)
	if res.Error != nil {
		return errors.Wrapf(res.Error, "fail to transition lead %s", leadId)
	}
	// RowsAffected == 0 means the race was lost or the lead is gone; both are
	// skips, not failures.
	return nil
}

// MarkNotified flips notification_sent exactly once. Returns false when the
// flag was already set, which callers use to skip replayed triggers.
func (s *LeadStore) MarkNotified(leadId string) (bool, error) {
	res := s.DB.Model(&model.Lead{}).
		Where("id = ? AND notification_sent = ?", leadId, false).
		Update("notification_sent", true)
	if res.Error != nil {
		return false, errors.Wrap(res.Error, "fail to mark lead notified")
	}
	return res.RowsAffected > 0, nil
}

// SaveReplyDraft persists an on-demand generated reply suggestion.
func (s *LeadStore) SaveReplyDraft(leadId string, draft string) error {
	return s.DB.Model(&model.Lead{}).
		Where("id = ?", leadId).
		Update("reply_draft", draft).Error
}

func (s *LeadStore) GetLead(leadId string) (*model.Lead, error) {
	var lead model.Lead
	if err := s.DB.Where("id = ?", leadId).First(&lead).Error; err != nil {
		return nil, err
	}
	return &lead, nil
}

// ActiveSubscriptions returns every alert rule the runner should process.
func (s *LeadStore) ActiveSubscriptions() ([]model.Subscription, error) {
	var subs []model.Subscription
	if err := s.DB.Where("active = ?", true).Order("created_at").Find(&subs).Error; err != nil {
		return nil, errors.Wrap(err, "fail to load active subscriptions")
	}
	return subs, nil
}

func (s *LeadStore) GetSubscription(subscriptionId string) (*model.Subscription, error) {
	var sub model.Subscription
	if err := s.DB.Where("id = ?", subscriptionId).First(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

// SettingForOwner loads the owner's channel and product configuration.
func (s *LeadStore) SettingForOwner(ownerId string) (*model.OwnerSetting, error) {
	var setting model.OwnerSetting
	if err := s.DB.Where("owner_id = ?", ownerId).First(&setting).Error; err != nil {
		return nil, err
	}
	return &setting, nil
}
