package model

import (
	"time"

	"gorm.io/gorm"
)

/*

OwnerSetting is per-owner notification and classification configuration,
maintained by the settings UI (out of scope here) and read-only to the
pipeline.

SlackWebhookUrl: chat webhook A, slack incoming-webhook format
ChatWebhookUrl: chat webhook B, any endpoint accepting the same json schema
NotifyEmail: destination address for the email channel
SlackEnabled, ChatWebhookEnabled, EmailEnabled: per-channel switches

ProductContext: free-text description of the owner's product/business, fed to
the classifier so relevance is judged against what the owner actually sells.

*/
type OwnerSetting struct {
	Id        string `gorm:"primaryKey"`
	CreatedAt time.Time
	DeletedAt gorm.DeletedAt
	OwnerID   string `gorm:"uniqueIndex"`

	SlackWebhookUrl    string
	ChatWebhookUrl     string
	NotifyEmail        string
	SlackEnabled       bool
	ChatWebhookEnabled bool
	EmailEnabled       bool

	ProductContext string
}
