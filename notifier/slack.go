package notifier

import (
	"fmt"

	"github.com/slack-go/slack"

	"github.com/leadsift/leadsift/model"
)

func buildTitleBlock(lead *model.Lead) slack.Block {
	return slack.NewHeaderBlock(
		slack.NewTextBlockObject("plain_text", fmt.Sprintf("New lead in r/%s", lead.Topic), false, false))
}

func buildFieldsBlock(lead *model.Lead) slack.Block {
	fields := []*slack.TextBlockObject{
		slack.NewTextBlockObject("mrkdwn", fmt.Sprintf("*Title:*\n%s", lead.Title), false, false),
		slack.NewTextBlockObject("mrkdwn", fmt.Sprintf("*Author:*\nu/%s", lead.Author), false, false),
	}
	if lead.OpportunityScore != nil {
		fields = append(fields,
			slack.NewTextBlockObject("mrkdwn", fmt.Sprintf("*Score:*\n%d/100", *lead.OpportunityScore), false, false),
			slack.NewTextBlockObject("mrkdwn", fmt.Sprintf("*Type:*\n%s", lead.OpportunityType), false, false))
	}
	return slack.NewSectionBlock(nil, fields, nil)
}

func buildReasonBlock(lead *model.Lead) slack.Block {
	text := lead.OpportunityReason
	if lead.SuggestedAngle != "" {
		text += fmt.Sprintf("\n_Angle: %s_", lead.SuggestedAngle)
	}
	return slack.NewContextBlock("", slack.NewTextBlockObject("mrkdwn", text, false, false))
}

// PushLeadToSlack posts a structured lead message to a slack incoming
// webhook. Success is any 2xx from the webhook endpoint.
func PushLeadToSlack(webhookUrl string, lead *model.Lead) error {
	blocks := []slack.Block{buildTitleBlock(lead), buildFieldsBlock(lead)}
	if lead.OpportunityReason != "" {
		blocks = append(blocks, buildReasonBlock(lead))
	}
	if lead.Url != "" {
		blocks = append(blocks, slack.NewContextBlock("",
			slack.NewTextBlockObject("mrkdwn", fmt.Sprintf("<%s|Open post>", lead.Url), false, false)))
	}

	webhookMsg := &slack.WebhookMessage{
		Blocks: &slack.Blocks{BlockSet: blocks},
	}
	return slack.PostWebhook(webhookUrl, webhookMsg)
}
