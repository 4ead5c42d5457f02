package model

import "time"

// ContentItem is one post as it comes off the source feed. It lives only for
// the duration of a fetch cycle and is never persisted directly; qualifying
// items are copied into a Lead.
type ContentItem struct {
	ExternalId string    `json:"external_id" binding:"required"`
	Title      string    `json:"title" binding:"required"`
	Body       string    `json:"body"`
	Url        string    `json:"url"`
	Author     string    `json:"author" binding:"required"`
	Topic      string    `json:"topic"`
	CreatedAt  time.Time `json:"created_at"`
}
