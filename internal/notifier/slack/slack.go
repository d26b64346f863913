package slack

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/derby-tracker/internal/metrics"
	"github.com/mauv0809/derby-tracker/internal/notifier"
	"github.com/mauv0809/derby-tracker/internal/summary"
	"github.com/slack-go/slack"
)

const topScorers = 3

// slackClient is an interface that contains the methods from the slack.Client that we use.
// This allows for easy mocking in tests.
type slackClient interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

var _ notifier.Notifier = &Notifier{}

// Notifier handles sending notifications to Slack.
type Notifier struct {
	api       slackClient
	channelID string
	metrics   metrics.Metrics
}

// NewNotifier creates a new Notifier.
func NewNotifier(token, channelID string, metrics metrics.Metrics) *Notifier {
	api := slack.New(token)
	return &Notifier{
		api:       api,
		channelID: channelID,
		metrics:   metrics,
	}
}

// NewNotifierWithAPI creates a new Notifier with a specific slack.Client instance.
// Useful for tests that need to intercept API calls.
func NewNotifierWithAPI(api slackClient, channelID string, metrics metrics.Metrics) *Notifier {
	return &Notifier{
		api:       api,
		channelID: channelID,
		metrics:   metrics,
	}
}

func (s *Notifier) sendMessage(message slack.Message, dryRun bool) (string, string, error) {
	if dryRun {
		jsonMsg, _ := json.MarshalIndent(message, "", "  ")
		log.Info("[Dry Run] Would send Slack message", "channel", s.channelID, "message", string(jsonMsg))
		return "dry-run-ts", "dry-run-thread-ts", nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	channelID, timestamp, err := s.api.PostMessageContext(
		ctx,
		s.channelID,
		slack.MsgOptionBlocks(message.Blocks.BlockSet...),
		slack.MsgOptionAsUser(true),
	)

	if err != nil {
		s.metrics.IncSlackNotifFailed()
		log.Error("Failed to send Slack message", "error", err, "channel", s.channelID)
		return "", "", fmt.Errorf("failed to post message: %w", err)
	}

	s.metrics.IncSlackNotifSent()
	log.Info("Successfully sent Slack message", "channel", channelID, "timestamp", timestamp)
	return channelID, timestamp, nil
}

func (s *Notifier) SendBoutResult(result *summary.Summary, dryRun bool) error {
	msg := s.formatBoutResult(result)
	_, _, err := s.sendMessage(msg, dryRun)
	return err
}

// formatBoutResult creates the Slack message for a finished bout using Block Kit.
func (s *Notifier) formatBoutResult(result *summary.Summary) slack.Message {
	blocks := make([]slack.Block, 0)

	headerText := slack.NewTextBlockObject("plain_text", "🛼 Bout finished! 🛼", true, false)
	blocks = append(blocks, slack.NewHeaderBlock(headerText))

	when := time.Unix(result.BoutDate, 0).UTC().Format("Monday 02 Jan 2006")
	detailsText := fmt.Sprintf("%s vs %s\n%s, %s", result.Home.TeamName, result.Away.TeamName, result.Venue, when)
	blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("plain_text", detailsText, false, false), nil, nil))

	resultHeaderText := "Result: It's a tie! 🤝"
	if winner := result.Winner(); winner != nil {
		resultHeaderText = fmt.Sprintf("Result: %s won! 🏆", winner.TeamName)
	}
	scoreFields := []*slack.TextBlockObject{
		slack.NewTextBlockObject("plain_text", fmt.Sprintf("%s\n%d", result.Home.TeamName, result.Home.Score), true, false),
		slack.NewTextBlockObject("plain_text", fmt.Sprintf("%s\n%d", result.Away.TeamName, result.Away.Score), true, false),
	}
	blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("plain_text", resultHeaderText, true, false), scoreFields, nil))

	if scorers := formatTopScorers(result); scorers != "" {
		blocks = append(blocks, slack.NewDividerBlock())
		blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("mrkdwn", "*Top scorers*\n"+scorers, false, false), nil, nil))
	}

	return slack.NewBlockMessage(blocks...)
}

func formatTopScorers(result *summary.Summary) string {
	type scorer struct {
		name   string
		team   string
		points int
	}
	var all []scorer
	for _, side := range []summary.Side{result.Home, result.Away} {
		for _, p := range side.Players {
			if p.PointsScored > 0 {
				all = append(all, scorer{name: p.DerbyName, team: side.TeamName, points: p.PointsScored})
			}
		}
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].points != all[j].points {
			return all[i].points > all[j].points
		}
		return all[i].name < all[j].name
	})
	if len(all) > topScorers {
		all = all[:topScorers]
	}

	lines := make([]string, 0, len(all))
	for i, sc := range all {
		lines = append(lines, fmt.Sprintf("%d. %s (%s): %d pts", i+1, sc.name, sc.team, sc.points))
	}
	return strings.Join(lines, "\n")
}
