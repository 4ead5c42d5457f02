package classifier

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/leadsift/leadsift/model"
	"github.com/leadsift/leadsift/utils"
)

// GenerateReplyDraft produces a short conversational reply suggestion for a
// qualified lead. It is called on demand from the dashboard, never from the
// pipeline run. Errors are returned to the caller; stored lead state is not
// touched here.
func (c *Classifier) GenerateReplyDraft(ctx context.Context, lead *model.Lead, productContext string) (string, error) {
	user := fmt.Sprintf("Business: %s\n\nPost title: %s\nPost body: %s\nEngagement angle: %s",
		productContext,
		utils.TruncateString(lead.Title, maxTitleRunes),
		utils.TruncateString(lead.Body, maxBodyRunes),
		lead.SuggestedAngle)

	answer, err := c.Client.Complete(ctx, replySystemPrompt, user, replyMaxTokens)
	if err != nil {
		return "", errors.Wrap(err, "reply draft generation failed")
	}

	draft := strings.TrimSpace(answer)
	if draft == "" {
		return "", errors.New("model returned an empty reply draft")
	}
	return draft, nil
}
