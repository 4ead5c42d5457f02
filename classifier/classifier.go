package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/leadsift/leadsift/model"
	"github.com/leadsift/leadsift/utils"
	Logger "github.com/leadsift/leadsift/utils/log"
)

const (
	// Bounds on text shipped to the model, to cap token spend per call.
	maxTitleRunes = 200
	maxBodyRunes  = 800

	relevanceMaxTokens = 5
	scoringMaxTokens   = 300
	replyMaxTokens     = 250
)

// Scoring is the stage-2 structured output. The zero value doubles as the
// safe default returned on any model or parse failure.
type Scoring struct {
	IsOpportunity   bool   `json:"is_opportunity"`
	OpportunityType string `json:"opportunity_type"`
	Score           int    `json:"score"`
	ShortReason     string `json:"short_reason"`
	SuggestedAngle  string `json:"suggested_angle"`
}

// Classifier wraps the two model stages. Both stages fail closed: an API
// error, an unparseable answer or an empty answer all degrade to "not
// relevant" / "not an opportunity" so a flaky model can never abort a run or
// surface false positives.
type Classifier struct {
	Client         Client
	ScoreThreshold int
}

func NewClassifier(client Client, scoreThreshold int) *Classifier {
	return &Classifier{Client: client, ScoreThreshold: scoreThreshold}
}

// CheckRelevance is the cheap stage-1 binary gate. Only an answer starting
// with "yes" (case-insensitive) counts as relevant.
func (c *Classifier) CheckRelevance(ctx context.Context, item model.ContentItem, productContext string) bool {
	user := fmt.Sprintf("Business: %s\n\nPost title: %s\nPost body: %s",
		productContext,
		utils.TruncateString(item.Title, maxTitleRunes),
		utils.TruncateString(item.Body, maxBodyRunes))

	answer, err := c.Client.Complete(ctx, relevanceSystemPrompt, user, relevanceMaxTokens)
	if err != nil {
		Logger.Log.WithFields(logrus.Fields{"stage": "relevance", "external_id": item.ExternalId}).
			Error("classifier call failed, defaulting to not relevant: ", err)
		return false
	}
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(answer)), "yes")
}

// ScoreOpportunity is the stage-2 structured scoring call. The response must
// parse as strict JSON; anything else returns the safe default.
func (c *Classifier) ScoreOpportunity(ctx context.Context, item model.ContentItem, productContext string) Scoring {
	user := fmt.Sprintf("Business: %s\n\nPost title: %s\nPost body: %s",
		productContext,
		utils.TruncateString(item.Title, maxTitleRunes),
		utils.TruncateString(item.Body, maxBodyRunes))

	answer, err := c.Client.Complete(ctx, scoringSystemPrompt, user, scoringMaxTokens)
	if err != nil {
		Logger.Log.WithFields(logrus.Fields{"stage": "scoring", "external_id": item.ExternalId}).
			Error("classifier call failed, defaulting to no opportunity: ", err)
		return Scoring{}
	}

	var scoring Scoring
	if err := json.Unmarshal([]byte(cleanJSONResponse(answer)), &scoring); err != nil {
		Logger.Log.WithFields(logrus.Fields{"stage": "scoring", "external_id": item.ExternalId}).
			Error("unparseable scoring response, defaulting to no opportunity: ", err)
		return Scoring{}
	}

	if !validOpportunityType(scoring.OpportunityType) {
		scoring.OpportunityType = model.OpportunityOtherMarketing
	}
	if scoring.Score < 0 {
		scoring.Score = 0
	}
	if scoring.Score > 100 {
		scoring.Score = 100
	}
	return scoring
}

// IsHighScore says whether a scoring result qualifies the lead for
// notification.
func (c *Classifier) IsHighScore(s Scoring) bool {
	return s.IsOpportunity && s.Score >= c.ScoreThreshold
}

func validOpportunityType(t string) bool {
	switch t {
	case model.OpportunityDirectBuyingIntent,
		model.OpportunityProblemAwareness,
		model.OpportunityRecommendationRequest,
		model.OpportunityCompetitorDiscussion,
		model.OpportunityOtherMarketing:
		return true
	}
	return false
}

// cleanJSONResponse strips markdown code fences some models wrap around json
// output despite being told not to.
func cleanJSONResponse(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}
