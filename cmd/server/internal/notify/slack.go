package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	slackapi "github.com/slack-go/slack"

	"github.com/TeheranMauricio/ai-summary-server-joingo/cmd/server/internal/session"
)

// slackClient abstracts the Slack API methods we use, enabling test mocks.
type slackClient interface {
	AuthTest() (*slackapi.AuthTestResponse, error)
	PostMessage(channelID string, options ...slackapi.MsgOption) (string, string, error)
}

// SlackDistributor posts summaries to Slack. Recipients are channel or
// user IDs; each one is attempted even when earlier ones fail.
type SlackDistributor struct {
	client slackClient
	logger *slog.Logger
}

// SlackOpts holds parameters for creating a SlackDistributor.
type SlackOpts struct {
	BotToken string // xoxb-... Slack bot token
	Logger   *slog.Logger
	// For testing: inject a mock client instead of the real Slack API.
	Client slackClient
}

// NewSlackDistributor creates a Slack-backed distributor.
func NewSlackDistributor(opts SlackOpts) (*SlackDistributor, error) {
	if opts.Client == nil && opts.BotToken == "" {
		return nil, fmt.Errorf("slack: bot token is required")
	}
	d := &SlackDistributor{
		client: opts.Client,
		logger: opts.Logger,
	}
	if d.client == nil {
		d.client = slackapi.New(opts.BotToken)
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	return d, nil
}

// Verify checks the bot token against the Slack API.
func (d *SlackDistributor) Verify() error {
	if _, err := d.client.AuthTest(); err != nil {
		return fmt.Errorf("slack: auth test: %w", err)
	}
	return nil
}

// Deliver posts the formatted summary to every recipient. Failures are
// collected per recipient; partial delivery returns a joined error so
// the caller can log what was missed.
func (d *SlackDistributor) Deliver(ctx context.Context, meetingKey string, recipients []string, sum *session.Summary) error {
	text := FormatSummaryMessage(meetingKey, sum)

	var errs []error
	for _, recipient := range recipients {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		_, _, err := d.client.PostMessage(recipient,
			slackapi.MsgOptionText(text, false),
			slackapi.MsgOptionDisableLinkUnfurl(),
		)
		if err != nil {
			d.logger.Warn("summary delivery failed",
				"meeting_key", meetingKey, "recipient", recipient, "error", err)
			errs = append(errs, fmt.Errorf("recipient %s: %w", recipient, err))
		}
	}
	return errors.Join(errs...)
}

func (d *SlackDistributor) Name() string { return "slack" }

// FormatSummaryMessage renders a summary as Slack mrkdwn.
func FormatSummaryMessage(meetingKey string, sum *session.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*Meeting summary: %s* (%s)\n\n", meetingKey, sum.Duration)
	b.WriteString(sum.Narrative)

	if len(sum.Topics) > 0 {
		b.WriteString("\n\n*Topics*\n")
		for _, topic := range sum.Topics {
			fmt.Fprintf(&b, "• %s\n", topic)
		}
	}
	if len(sum.Tasks) > 0 {
		b.WriteString("\n*Action items*\n")
		for _, task := range sum.Tasks {
			line := task.Description
			if task.Assignee != "" {
				line += " - " + task.Assignee
			}
			if task.Deadline != "" {
				line += " (due " + task.Deadline + ")"
			}
			fmt.Fprintf(&b, "• %s\n", line)
		}
	}
	if len(sum.NextSteps) > 0 {
		b.WriteString("\n*Next steps*\n")
		for _, step := range sum.NextSteps {
			fmt.Fprintf(&b, "• %s\n", step)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
