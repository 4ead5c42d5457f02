package model

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

/*

Subscription is an owner's alert rule pairing one monitored subreddit with a
keyword list. The pipeline reads subscriptions as configuration and never
mutates them.

Id: primary key
OwnerID: the account that owns this alert
Topic: subreddit name without the /r/ prefix
Keywords: keyword filters serialized as a comma separated string
Active: inactive subscriptions are skipped by the runner

*/
type Subscription struct {
	Id        string `gorm:"primaryKey"`
	CreatedAt time.Time
	DeletedAt gorm.DeletedAt
	OwnerID   string `gorm:"index"`
	Topic     string
	Keywords  string
	Active    bool
}

// KeywordList splits the serialized keyword column, dropping entries that are
// too short to be meaningful filters (trimmed length < 2).
func (s *Subscription) KeywordList() []string {
	res := []string{}
	for _, k := range strings.Split(s.Keywords, ",") {
		k = strings.TrimSpace(k)
		if len(k) >= 2 {
			res = append(res, k)
		}
	}
	return res
}
