package notifier

import (
	"bytes"
	"html/template"
	"os"

	"github.com/pkg/errors"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/leadsift/leadsift/model"
)

// errNoEmailProvider marks the email channel as skipped when no provider key
// is configured for the process.
var errNoEmailProvider = errors.New("email provider API key not configured")

var leadEmailTemplate = template.Must(template.New("lead_email").Parse(`
<h2>New lead in r/{{.Topic}}</h2>
<p><strong>{{.Title}}</strong></p>
<p>by u/{{.Author}}</p>
{{if .OpportunityScore}}<p>Opportunity score: {{.OpportunityScore}}/100 ({{.OpportunityType}})</p>{{end}}
{{if .OpportunityReason}}<p>{{.OpportunityReason}}</p>{{end}}
<p><a href="{{.Url}}">Open the post and reply</a></p>
`))

// SendLeadEmail delivers the lead via the transactional email provider. The
// provider key is process-level configuration; when it is absent the channel
// is skipped by the dispatcher before this function is reached.
func SendLeadEmail(apiKey string, toAddress string, lead *model.Lead) error {
	var html bytes.Buffer
	if err := leadEmailTemplate.Execute(&html, lead); err != nil {
		return errors.Wrap(err, "fail to render lead email")
	}

	from := mail.NewEmail("Leadsift Alerts", fromAddress())
	to := mail.NewEmail("", toAddress)
	subject := "New Reddit lead: " + lead.Title
	msg := mail.NewSingleEmail(from, subject, to, lead.Title, html.String())

	resp, err := sendgrid.NewSendClient(apiKey).Send(msg)
	if err != nil {
		return errors.Wrap(err, "sendgrid send failed")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.Errorf("sendgrid returned status %d", resp.StatusCode)
	}
	return nil
}

func fromAddress() string {
	if addr := os.Getenv("ALERT_FROM_EMAIL"); addr != "" {
		return addr
	}
	return "alerts@leadsift.io"
}
