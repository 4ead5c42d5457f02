package server

import "github.com/leadsift/leadsift/model"

// Request/response schemas for every endpoint. Payloads are validated on
// entry via gin binding; shape mismatches get a 400 before any processing.

type IngestRequest struct {
	AlertId string              `json:"alert_id" binding:"required"`
	Topic   string              `json:"topic" binding:"required"`
	Posts   []model.ContentItem `json:"posts" binding:"required"`
}

type IngestResponse struct {
	Status        string `json:"status"`
	Processed     int    `json:"processed"`
	New           int    `json:"new"`
	Duplicates    int    `json:"duplicates"`
	Notifications *NotificationTally `json:"notifications,omitempty"`
}

type NotificationTally struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

type RunResponse struct {
	Success         bool   `json:"success"`
	AlertsProcessed int    `json:"alertsProcessed"`
	TotalNewLeads   int    `json:"totalNewLeads"`
	StartedAt       string `json:"startedAt"`
	FinishedAt      string `json:"finishedAt"`
}

type LeadTriggerRequest struct {
	LeadId string `json:"lead_id" binding:"required"`
}

type LeadCreatedResponse struct {
	Success   bool     `json:"success"`
	Stage     string   `json:"stage"`
	Result    string   `json:"result"`
	DebugLogs []string `json:"debug_logs"`
}

type LeadReadyResponse struct {
	Success             bool `json:"success"`
	NotificationsSent   int  `json:"notificationsSent"`
	NotificationsFailed int  `json:"notificationsFailed"`
}

type ReplyDraftResponse struct {
	Success    bool   `json:"success"`
	ReplyDraft string `json:"reply_draft"`
}
