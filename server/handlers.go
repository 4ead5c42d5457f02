package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/leadsift/leadsift/model"
	"github.com/leadsift/leadsift/pipeline"
	Logger "github.com/leadsift/leadsift/utils/log"
)

// PipelineStore is the persistence surface the handlers need on top of what
// the runner already uses. *store.LeadStore implements it.
type PipelineStore interface {
	pipeline.LeadRepository
	GetLead(leadId string) (*model.Lead, error)
	GetSubscription(subscriptionId string) (*model.Subscription, error)
	SaveReplyDraft(leadId string, draft string) error
}

// ReplyDrafter generates an on-demand reply suggestion for a qualified lead.
type ReplyDrafter interface {
	GenerateReplyDraft(ctx context.Context, lead *model.Lead, productContext string) (string, error)
}

type Handlers struct {
	Runner     *pipeline.Runner
	Store      PipelineStore
	Dispatcher pipeline.NotificationDispatcher
	Drafter    ReplyDrafter
}

// RegisterRoutes wires every endpoint behind the shared-secret middleware,
// except the health route.
func RegisterRoutes(router *gin.Engine, h *Handlers, authMiddleware gin.HandlerFunc) {
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	authed := router.Group("/", authMiddleware)
	authed.POST("/ingest", h.HandleIngest)
	authed.POST("/run", h.HandleRun)
	authed.POST("/hooks/lead-created", h.HandleLeadCreated)
	authed.POST("/hooks/lead-ready", h.HandleLeadReady)
	authed.POST("/leads/:id/reply-draft", h.HandleReplyDraft)
}

// HandleIngest is the pull-variant ingestion endpoint: an external scheduler
// already fetched the posts and submits them pre-batched for one alert. The
// endpoint runs dedup→filter→store→classify→notify and always answers with a
// structured summary, partial failures included.
func (h *Handlers) HandleIngest(c *gin.Context) {
	var req IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": err.Error()})
		return
	}

	sub, err := h.Store.GetSubscription(req.AlertId)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": fmt.Sprintf("unknown alert %q", req.AlertId)})
		return
	}
	setting, err := h.Store.SettingForOwner(sub.OwnerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"msg": "fail to load owner settings"})
		return
	}

	// Topic on the wire must be filled in when the scheduler omitted it per
	// item.
	for i := range req.Posts {
		if req.Posts[i].Topic == "" {
			req.Posts[i].Topic = req.Topic
		}
	}

	governor := pipeline.NewRunGovernor(h.Runner.Config)
	summary := h.Runner.ProcessBatch(c.Request.Context(), governor, sub, setting, req.Posts)

	c.JSON(http.StatusOK, IngestResponse{
		Status:     "ok",
		Processed:  summary.Processed,
		New:        summary.New,
		Duplicates: summary.Duplicates,
		Notifications: &NotificationTally{
			Sent:   summary.NotificationsSent,
			Failed: summary.NotificationsFailed,
		},
	})
}

// HandleRun is the push-variant entry point for the cron orchestrator: the
// endpoint itself fetches and processes every active subscription.
func (h *Handlers) HandleRun(c *gin.Context) {
	report := h.Runner.RunAll(c.Request.Context())

	c.JSON(http.StatusOK, RunResponse{
		Success:         !report.Aborted,
		AlertsProcessed: report.AlertsProcessed,
		TotalNewLeads:   report.TotalNewLeads,
		StartedAt:       report.StartedAt.Format("2006-01-02T15:04:05Z07:00"),
		FinishedAt:      report.FinishedAt.Format("2006-01-02T15:04:05Z07:00"),
	})
}

// HandleLeadCreated is the insert-trigger webhook: it drives the two
// classifier stages synchronously for one freshly inserted lead.
func (h *Handlers) HandleLeadCreated(c *gin.Context) {
	var req LeadTriggerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": err.Error()})
		return
	}

	debugLogs := []string{}
	lead, err := h.Store.GetLead(req.LeadId)
	if err != nil {
		c.JSON(http.StatusOK, LeadCreatedResponse{
			Success: false, Stage: "load", Result: "lead not found",
			DebugLogs: append(debugLogs, err.Error()),
		})
		return
	}

	setting, err := h.settingForLead(lead)
	if err != nil {
		c.JSON(http.StatusOK, LeadCreatedResponse{
			Success: false, Stage: "load", Result: "owner settings not found",
			DebugLogs: append(debugLogs, err.Error()),
		})
		return
	}

	item := contentItemFromLead(lead)
	debugLogs = append(debugLogs, fmt.Sprintf("classifying lead %s (r/%s)", lead.Id, lead.Topic))

	ready, scoring := h.Runner.ClassifyLead(c.Request.Context(), lead, item, setting.ProductContext)
	if !ready {
		c.JSON(http.StatusOK, LeadCreatedResponse{
			Success: true, Stage: "relevance", Result: model.ProcessingStatusDiscarded,
			DebugLogs: append(debugLogs, "stage 1 judged not relevant or lead already locked"),
		})
		return
	}

	c.JSON(http.StatusOK, LeadCreatedResponse{
		Success: true, Stage: "scoring", Result: model.ProcessingStatusReady,
		DebugLogs: append(debugLogs, fmt.Sprintf("scored %d (%s)", scoring.Score, scoring.OpportunityType)),
	})
}

// HandleLeadReady is the update-trigger webhook: gated on the lead being
// ready and not yet notified, it drives the dispatcher. Replays for an
// already-notified lead are no-op skips with zero channel calls.
func (h *Handlers) HandleLeadReady(c *gin.Context) {
	var req LeadTriggerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": err.Error()})
		return
	}

	lead, err := h.Store.GetLead(req.LeadId)
	if err != nil {
		c.JSON(http.StatusOK, LeadReadyResponse{Success: false})
		return
	}
	if lead.ProcessingStatus != model.ProcessingStatusReady || lead.NotificationSent {
		c.JSON(http.StatusOK, LeadReadyResponse{Success: true})
		return
	}

	setting, err := h.settingForLead(lead)
	if err != nil {
		c.JSON(http.StatusOK, LeadReadyResponse{Success: false})
		return
	}

	sent, failed := h.Dispatcher.Dispatch(lead, setting)
	if _, err := h.Store.MarkNotified(lead.Id); err != nil {
		Logger.Log.Error("fail to mark lead notified: ", err)
	}

	c.JSON(http.StatusOK, LeadReadyResponse{
		Success:             true,
		NotificationsSent:   sent,
		NotificationsFailed: failed,
	})
}

// HandleReplyDraft generates and persists a reply suggestion for one lead on
// demand. Failures leave stored state untouched.
func (h *Handlers) HandleReplyDraft(c *gin.Context) {
	leadId := c.Param("id")

	lead, err := h.Store.GetLead(leadId)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"msg": "lead not found"})
		return
	}
	setting, err := h.settingForLead(lead)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"msg": "fail to load owner settings"})
		return
	}

	draft, err := h.Drafter.GenerateReplyDraft(c.Request.Context(), lead, setting.ProductContext)
	if err != nil {
		c.JSON(http.StatusOK, ReplyDraftResponse{Success: false})
		return
	}
	if err := h.Store.SaveReplyDraft(lead.Id, draft); err != nil {
		Logger.Log.Error("fail to persist reply draft: ", err)
	}

	c.JSON(http.StatusOK, ReplyDraftResponse{Success: true, ReplyDraft: draft})
}

func (h *Handlers) settingForLead(lead *model.Lead) (*model.OwnerSetting, error) {
	sub, err := h.Store.GetSubscription(lead.SubscriptionID)
	if err != nil {
		return nil, err
	}
	return h.Store.SettingForOwner(sub.OwnerID)
}

func contentItemFromLead(lead *model.Lead) model.ContentItem {
	return model.ContentItem{
		ExternalId: lead.ExternalPostId,
		Title:      lead.Title,
		Body:       lead.Body,
		Url:        lead.Url,
		Author:     lead.Author,
		Topic:      lead.Topic,
		CreatedAt:  lead.PostedAt,
	}
}
