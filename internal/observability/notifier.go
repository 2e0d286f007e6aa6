package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"
)

// Notifier delivers alerts outside the process.
type Notifier interface {
	Notify(ctx context.Context, alerts []Alert) error
}

// maxSlackAlerts caps the sections in one webhook post. Slack rejects
// messages with more than 50 blocks.
const maxSlackAlerts = 20

// webhookNotifier posts Block Kit messages to a Slack incoming webhook.
type webhookNotifier struct {
	url    string
	client *http.Client
}

// NewSlackNotifier returns a Notifier for the given incoming webhook URL.
func NewSlackNotifier(webhookURL string) Notifier {
	return &webhookNotifier{
		url:    webhookURL,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

type slackMessage struct {
	Text   string       `json:"text"`
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type     string      `json:"type"`
	Text     *slackText  `json:"text,omitempty"`
	Elements []slackText `json:"elements,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Notify sends every alert in a single post, most severe first. It is a
// no-op for an empty slice.
func (n *webhookNotifier) Notify(ctx context.Context, alerts []Alert) error {
	if len(alerts) == 0 {
		return nil
	}

	payload, err := json.Marshal(composeAlertMessage(alerts))
	if err != nil {
		return fmt.Errorf("encoding alert message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending alerts to webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook rejected alerts: status %d", resp.StatusCode)
	}
	return nil
}

// composeAlertMessage renders a header, a severity summary and one section
// per alert. Alerts past maxSlackAlerts are counted in a trailing note.
func composeAlertMessage(alerts []Alert) slackMessage {
	ordered := make([]Alert, len(alerts))
	copy(ordered, alerts)
	sort.SliceStable(ordered, func(i, j int) bool {
		return severityRank(ordered[i].Severity) < severityRank(ordered[j].Severity)
	})

	title := fmt.Sprintf("ptrack: %d task alert(s)", len(alerts))
	msg := slackMessage{
		Text: title,
		Blocks: []slackBlock{
			{Type: "header", Text: &slackText{Type: "plain_text", Text: title}},
			{Type: "context", Elements: []slackText{{Type: "mrkdwn", Text: severitySummary(ordered)}}},
			{Type: "divider"},
		},
	}

	shown := ordered
	if len(shown) > maxSlackAlerts {
		shown = shown[:maxSlackAlerts]
	}
	for _, a := range shown {
		line := fmt.Sprintf("%s *%s* %s\n_%s_",
			severityEmoji(a.Severity),
			strings.ToUpper(string(a.Severity)),
			a.Message,
			strings.ReplaceAll(a.Condition, "_", " "),
		)
		msg.Blocks = append(msg.Blocks, slackBlock{Type: "section", Text: &slackText{Type: "mrkdwn", Text: line}})
	}
	if rest := len(ordered) - len(shown); rest > 0 {
		msg.Blocks = append(msg.Blocks, slackBlock{
			Type:     "context",
			Elements: []slackText{{Type: "mrkdwn", Text: fmt.Sprintf("…and %d more. Run `ptrack alerts` for the full list.", rest)}},
		})
	}
	return msg
}

// severitySummary counts alerts per severity, e.g. "2 high · 1 low".
func severitySummary(alerts []Alert) string {
	counts := make(map[AlertSeverity]int)
	for _, a := range alerts {
		counts[a.Severity]++
	}
	var parts []string
	for _, sev := range []AlertSeverity{SeverityHigh, SeverityMedium, SeverityLow} {
		if counts[sev] > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", counts[sev], sev))
		}
	}
	return strings.Join(parts, " · ")
}

func severityEmoji(s AlertSeverity) string {
	switch s {
	case SeverityHigh:
		return ":red_circle:"
	case SeverityMedium:
		return ":large_yellow_circle:"
	case SeverityLow:
		return ":large_blue_circle:"
	}
	return ":grey_question:"
}
