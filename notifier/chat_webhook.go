package notifier

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/leadsift/leadsift/model"
)

const chatWebhookTimeout = 10 * time.Second

// chatWebhookPayload is the schema posted to the generic chat webhook
// channel. Endpoints that take slack-compatible payloads can consume the
// "text" field, richer ones read the structured lead block.
type chatWebhookPayload struct {
	Text string          `json:"text"`
	Lead chatWebhookLead `json:"lead"`
}

type chatWebhookLead struct {
	Title            string `json:"title"`
	Topic            string `json:"topic"`
	Author           string `json:"author"`
	Url              string `json:"url"`
	OpportunityScore *int   `json:"opportunity_score,omitempty"`
	OpportunityType  string `json:"opportunity_type,omitempty"`
	SuggestedAngle   string `json:"suggested_angle,omitempty"`
}

// PushLeadToChatWebhook posts the lead as json to an arbitrary webhook url.
// Success is any 2xx, 204 included.
func PushLeadToChatWebhook(webhookUrl string, lead *model.Lead) error {
	payload := chatWebhookPayload{
		Text: fmt.Sprintf("New lead in r/%s: %s", lead.Topic, lead.Title),
		Lead: chatWebhookLead{
			Title:            lead.Title,
			Topic:            lead.Topic,
			Author:           lead.Author,
			Url:              lead.Url,
			OpportunityScore: lead.OpportunityScore,
			OpportunityType:  lead.OpportunityType,
			SuggestedAngle:   lead.SuggestedAngle,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "fail to marshal chat webhook payload")
	}

	client := &http.Client{Timeout: chatWebhookTimeout}
	resp, err := client.Post(webhookUrl, "application/json", bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "chat webhook post failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.Errorf("chat webhook returned status %d", resp.StatusCode)
	}
	return nil
}
