package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/tiptune/tipmod/util"

	"golang.org/x/time/rate"
)

type SlackNotifier struct {
	SlackWebhookURL string
	Client          *http.Client
	Limiter         *rate.Limiter
}

// Slack incoming webhooks accept roughly one message per second.
func NewSlackNotifier(webhookURL string) *SlackNotifier {
	return &SlackNotifier{
		SlackWebhookURL: webhookURL,
		Client:          util.RobustHTTPClient(),
		Limiter:         rate.NewLimiter(rate.Limit(1), 5),
	}
}

func (n *SlackNotifier) Name() string {
	return "slack"
}

func (n *SlackNotifier) Notify(ctx context.Context, ev *Event) error {
	if n.Limiter != nil {
		if err := n.Limiter.Wait(ctx); err != nil {
			return err
		}
	}
	return n.sendSlackMsg(ctx, slackBody(ev))
}

type SlackWebhookBody struct {
	Text string `json:"text"`
}

// Sends a simple slack message to a channel via "incoming webhook".
//
// The slack incoming webhook must be already configured in the slack workplace.
func (n *SlackNotifier) sendSlackMsg(ctx context.Context, msg string) error {
	body, err := json.Marshal(SlackWebhookBody{Text: msg})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.SlackWebhookURL, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Add("Content-Type", "application/json")
	client := n.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}

	defer resp.Body.Close()

	buf := new(bytes.Buffer)
	buf.ReadFrom(resp.Body)
	if resp.StatusCode != 200 || buf.String() != "ok" {
		return fmt.Errorf("failed slack webhook POST request. status=%d", resp.StatusCode)
	}
	return nil
}

func slackBody(ev *Event) string {
	var msg string
	switch ev.Kind {
	case KindMessageBlocked:
		msg = "⛔ Tip Message Blocked ⛔\n"
	case KindMessageFlagged:
		msg = "⚠️ Tip Message Flagged For Review ⚠️\n"
	case KindReviewApproved:
		msg = "✅ Flagged Tip Message Approved\n"
	case KindReviewBlocked:
		msg = "⛔ Flagged Tip Message Blocked\n"
	default:
		msg = fmt.Sprintf("Moderation event `%s`\n", ev.Kind)
	}
	msg += fmt.Sprintf("log `%s` / tip `%s`\n", ev.LogID, ev.TipID)
	if ev.ArtistID != "" {
		msg += fmt.Sprintf("Artist: `%s`\n", ev.ArtistID)
	}
	if ev.Reason != "" {
		msg += fmt.Sprintf("Reason: %s (confidence %s)\n", ev.Reason, ev.Confidence)
	}
	if ev.Reviewer != "" {
		msg += fmt.Sprintf("Reviewer: `%s`\n", ev.Reviewer)
	}
	return msg
}
