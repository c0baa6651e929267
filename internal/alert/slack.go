// Package alert delivers threshold violations to operators. Sinks are
// best-effort by contract: the monitor logs a failed send and moves on.
package alert

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/slack-go/slack"

	"github.com/gosuda/aegis/internal/domain"
	"github.com/gosuda/aegis/internal/threshold"
)

// SlackSink posts violations to a Slack channel.
type SlackSink struct {
	client  *slack.Client
	channel string
}

func NewSlackSink(client *slack.Client, channel string) *SlackSink {
	return &SlackSink{client: client, channel: channel}
}

func (s *SlackSink) Send(ctx context.Context, v *threshold.Violation) error {
	attachment := slack.Attachment{
		Color: attachmentColor(v.Severity),
		Title: fmt.Sprintf("Threshold violation: %s", v.MetricKey),
		Fields: []slack.AttachmentField{
			{Title: "Value", Value: fmt.Sprintf("%g", v.Value), Short: true},
			{Title: "Limit", Value: fmt.Sprintf("%g", v.Limit), Short: true},
			{Title: "Severity", Value: string(v.Severity), Short: true},
		},
		Ts: json.Number(fmt.Sprintf("%d", v.At.Unix())),
	}

	_, _, err := s.client.PostMessageContext(ctx, s.channel, slack.MsgOptionAttachments(attachment))
	if err != nil {
		return fmt.Errorf("alert.SlackSink.Send: %w", err)
	}

	return nil
}

func attachmentColor(sev domain.Severity) string {
	if sev == domain.SeverityCritical {
		return "danger"
	}
	return "warning"
}
