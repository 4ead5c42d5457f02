package model

import (
	"time"

	"gorm.io/gorm"
)

// Processing states a lead moves through. A lead starts at new, is soft
// locked with processing before the classifier runs, and ends in exactly one
// of ready, discarded or error. Terminal states never transition again.
const (
	ProcessingStatusNew        = "new"
	ProcessingStatusProcessing = "processing"
	ProcessingStatusReady      = "ready"
	ProcessingStatusDiscarded  = "discarded"
	ProcessingStatusError      = "error"
)

const (
	DisplayStatusInbox    = "inbox"
	DisplayStatusArchived = "archived"
)

// Opportunity types stage 2 is allowed to assign.
const (
	OpportunityDirectBuyingIntent    = "direct_buying_intent"
	OpportunityProblemAwareness      = "problem_awareness"
	OpportunityRecommendationRequest = "recommendation_request"
	OpportunityCompetitorDiscussion  = "competitor_discussion"
	OpportunityOtherMarketing        = "other_marketing"
)

/*

Lead is a candidate post that passed keyword filtering and was persisted for
classification.

Id: primary key
CreatedAt: time when entity is created
DeletedAt: time when entity is deleted

ExternalPostId: the post's stable id at the source (reddit permalink id).
		Unique index — a second insert for the same id is a no-op, which is what
		makes overlapping fetch windows and multi-subscriber fan-out idempotent.
SubscriptionID:
Subscription: the alert rule this lead was qualified under, "belongs-to" relation

Title, Body: post text, markup already stripped
Url: permalink to the post
Author: source username
Topic: subreddit the post was fetched from
PostedAt: time the post was published at the source

ProcessingStatus: state machine column, see constants above
DisplayStatus: what the dashboard shows, unrelated to processing
RelevanceScore: stage 1 result, 0 or 100 (binary gate recorded for audit)
OpportunityScore: stage 2 score 0-100
OpportunityType, OpportunityReason, SuggestedAngle: stage 2 structured output
ReplyDraft: on-demand generated reply suggestion, may be empty

NotificationSent: set to true exactly once after all channel attempts were
		made for this lead. Never reset.
*/
type Lead struct {
	Id             string `gorm:"primaryKey"`
	CreatedAt      time.Time
	DeletedAt      gorm.DeletedAt
	ExternalPostId string       `gorm:"uniqueIndex"`
	SubscriptionID string       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;"`
	Subscription   Subscription `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;"`

	Title    string
	Body     string
	Url      string
	Author   string
	Topic    string
	PostedAt time.Time

	ProcessingStatus  string `gorm:"index"`
	DisplayStatus     string
	RelevanceScore    *int
	OpportunityScore  *int
	OpportunityType   string
	OpportunityReason string
	SuggestedAngle    string
	ReplyDraft        string

	NotificationSent bool
}
