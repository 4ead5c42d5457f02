package notifier

import (
	"os"

	"github.com/sirupsen/logrus"

	"github.com/leadsift/leadsift/model"
	Logger "github.com/leadsift/leadsift/utils/log"
)

// channelFunc attempts delivery on one channel. Implementations are free to
// fail; the dispatcher isolates every failure.
type channelFunc func(lead *model.Lead) error

// Dispatcher fans a ready lead out to the owner's enabled channels. Every
// channel attempt is independent: one channel erroring or timing out never
// prevents the others from being tried.
type Dispatcher struct {
	// Overridable in tests. Defaults to the real channel implementations.
	SlackFunc func(webhookUrl string, lead *model.Lead) error
	ChatFunc  func(webhookUrl string, lead *model.Lead) error
	EmailFunc func(apiKey string, toAddress string, lead *model.Lead) error

	SendgridAPIKey string
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		SlackFunc:      PushLeadToSlack,
		ChatFunc:       PushLeadToChatWebhook,
		EmailFunc:      SendLeadEmail,
		SendgridAPIKey: os.Getenv("SENDGRID_API_KEY"),
	}
}

// Dispatch attempts every enabled channel and returns the per-run tally.
// Callers flip the lead's notification flag after this returns, regardless of
// how many channels succeeded; delivery is best effort.
func (d *Dispatcher) Dispatch(lead *model.Lead, setting *model.OwnerSetting) (sent int, failed int) {
	channels := d.enabledChannels(setting)

	for name, attempt := range channels {
		if err := attempt(lead); err != nil {
			failed++
			Logger.Log.WithFields(logrus.Fields{"lead_id": lead.Id, "channel": name}).
				Error("notification channel failed: ", err)
			continue
		}
		sent++
	}
	return sent, failed
}

func (d *Dispatcher) enabledChannels(setting *model.OwnerSetting) map[string]channelFunc {
	channels := map[string]channelFunc{}

	if setting.SlackEnabled && setting.SlackWebhookUrl != "" {
		url := setting.SlackWebhookUrl
		channels["slack"] = func(lead *model.Lead) error {
			return d.SlackFunc(url, lead)
		}
	}
	if setting.ChatWebhookEnabled && setting.ChatWebhookUrl != "" {
		url := setting.ChatWebhookUrl
		channels["chat_webhook"] = func(lead *model.Lead) error {
			return d.ChatFunc(url, lead)
		}
	}
	if setting.EmailEnabled && setting.NotifyEmail != "" {
		to := setting.NotifyEmail
		channels["email"] = func(lead *model.Lead) error {
			if d.SendgridAPIKey == "" {
				// No provider key configured at the process level: skip the
				// channel and count it unsent.
				return errNoEmailProvider
			}
			return d.EmailFunc(d.SendgridAPIKey, to, lead)
		}
	}
	return channels
}
