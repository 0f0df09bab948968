package notify

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/tucnak/telebot.v2"

	"github.com/supperdoggy/SmartHomeServer/harmoniq-maestro/library-sorter/pkg/models"
)

const maxUnmatchedShown = 10

// Telegram sends a run summary to one chat.
type Telegram struct {
	log    *zap.Logger
	sendFn func(text string) error
}

func NewTelegram(token string, chatID int64, log *zap.Logger) (*Telegram, error) {
	bot, err := telebot.NewBot(telebot.Settings{Token: token})
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}

	chat := &telebot.Chat{ID: chatID}
	return &Telegram{
		log: log,
		sendFn: func(text string) error {
			_, err := bot.Send(chat, text)
			return err
		},
	}, nil
}

func (t *Telegram) NotifyRun(ctx context.Context, report models.RunReport) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := t.sendFn(FormatReport(report)); err != nil {
		return fmt.Errorf("send run summary: %w", err)
	}
	t.log.Debug("Sent run summary", zap.String("run_id", report.ID))
	return nil
}

// FormatReport renders the report as a plain-text message.
func FormatReport(report models.RunReport) string {
	var b strings.Builder

	title := "Library sort"
	if report.Action == models.ActionCleanup {
		title = "Library cleanup"
	}
	if report.DryRun {
		title += " (dry run)"
	}
	fmt.Fprintf(&b, "%s: %s\n", title, report.Kind)

	if report.Action == models.ActionCleanup {
		fmt.Fprintf(&b, "Removed %d playlists\n", len(report.Removed))
		for _, name := range report.Removed {
			fmt.Fprintf(&b, "- %s\n", name)
		}
	} else {
		fmt.Fprintf(&b, "Tracks: %d read, %d skipped\n", report.TracksFetched, report.TracksSkipped)
		if report.UniqueGenres > 0 {
			fmt.Fprintf(&b, "Distinct genre tags: %d\n", report.UniqueGenres)
		}
		if report.Reassigned > 0 {
			fmt.Fprintf(&b, "Moved to another bucket since the last run: %d\n", report.Reassigned)
		}
	}

	for _, bucket := range report.Buckets {
		fmt.Fprintf(&b, "%s/%s: %d tracks, %d new", bucket.Kind, bucket.Label, bucket.Target, bucket.Uploaded)
		switch {
		case bucket.Failed:
			b.WriteString(" [failed]")
		case bucket.Created:
			b.WriteString(" [created]")
		}
		b.WriteString("\n")
	}

	if len(report.UnmatchedGenres) > 0 {
		b.WriteString("Unmatched genres: ")
		b.WriteString(strings.Join(topTags(report.UnmatchedGenres, maxUnmatchedShown), ", "))
		b.WriteString("\n")
	}

	if len(report.PartialFailures) > 0 {
		b.WriteString("Partial failures:\n")
		for _, f := range report.PartialFailures {
			fmt.Fprintf(&b, "- %s\n", f)
		}
	}

	if report.Error != "" {
		fmt.Fprintf(&b, "Run aborted: %s\n", report.Error)
	}

	return strings.TrimRight(b.String(), "\n")
}

// topTags returns up to n tags, most frequent first, as "tag (count)".
func topTags(counts map[string]int, n int) []string {
	tags := make([]string, 0, len(counts))
	for tag := range counts {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool {
		if counts[tags[i]] != counts[tags[j]] {
			return counts[tags[i]] > counts[tags[j]]
		}
		return tags[i] < tags[j]
	})
	if len(tags) > n {
		tags = tags[:n]
	}

	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		out = append(out, fmt.Sprintf("%s (%d)", tag, counts[tag]))
	}
	return out
}
