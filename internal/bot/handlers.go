package bot

import (
	"context"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	coreerrors "github.com/lueurxax/lead-scout-bot/internal/core/errors"
	"github.com/lueurxax/lead-scout-bot/internal/worker"
)

const (
	reportTopLeads      = 5
	reportTopPainPoints = 5
)

func (b *Bot) handleHelp(msg *tgbotapi.Message) {
	b.reply(msg, `🔍 <b>Lead Scout</b>

I watch this group's messages and, on demand, rank participants by customer-intent signals.

<b>Commands</b>
/analyze [since] [limit] — analyze this channel's recent messages. <i>since</i> is a duration (<code>72h</code>) or a date (<code>2026-08-01</code>); <i>limit</i> caps the message count.
/cancel — cancel the running analysis for this channel.
/status — show the latest analysis run for this channel.
/report — cumulative lead report across all runs.`)
}

func (b *Bot) handleAnalyze(ctx context.Context, msg *tgbotapi.Message) {
	channelID := chatIDString(msg.Chat.ID)

	if b.scout.Active(channelID) {
		b.reply(msg, "⏳ An analysis is already running for this channel. Use /cancel to stop it.")
		return
	}

	since, limit, err := b.parseAnalyzeArgs(msg.CommandArguments())
	if err != nil {
		b.reply(msg, fmt.Sprintf("❌ %s", html.EscapeString(err.Error())))
		return
	}

	progressID := b.send(msg.Chat.ID, fmt.Sprintf(
		"🔍 <b>Channel Analysis Started</b>\nWindow since <code>%s</code>, up to <code>%d</code> messages.",
		since.Format("2006-01-02 15:04"), limit))

	// The run outlives the update handler; it is cancelled via /cancel or
	// process shutdown, not by the handler returning.
	go func() {
		defer worker.RecoverPanic(b.logger, "channel analysis")

		result, runErr := b.scout.AnalyzeChannel(ctx, channelID, since, limit)
		if result == nil {
			b.edit(msg.Chat.ID, progressID, fmt.Sprintf("❌ Analysis could not start: %s", html.EscapeString(runErr.Error())))
			return
		}

		b.edit(msg.Chat.ID, progressID, formatRunResult(result, runErr))
	}()
}

// parseAnalyzeArgs parses "/analyze [since] [limit]". The since argument is
// either a Go duration looking back from now, or an absolute date.
func (b *Bot) parseAnalyzeArgs(args string) (time.Time, int, error) {
	since := time.Now().UTC().Add(-b.cfg.AnalyzeDefaultWindow)
	limit := b.cfg.AnalyzeDefaultLimit

	fields := strings.Fields(args)

	if len(fields) >= 1 {
		if d, err := time.ParseDuration(fields[0]); err == nil {
			since = time.Now().UTC().Add(-d)
		} else if t, err := dateparse.ParseAny(fields[0]); err == nil {
			since = t.UTC()
		} else {
			return time.Time{}, 0, fmt.Errorf("cannot parse %q as a duration or date", fields[0])
		}
	}

	if len(fields) >= 2 {
		n, err := strconv.Atoi(fields[1])
		if err != nil || n <= 0 {
			return time.Time{}, 0, fmt.Errorf("limit must be a positive integer, got %q", fields[1])
		}

		limit = n
	}

	return since, limit, nil
}

func (b *Bot) handleCancel(msg *tgbotapi.Message) {
	channelID := chatIDString(msg.Chat.ID)

	if b.scout.Cancel(channelID) {
		b.reply(msg, "🛑 Cancellation requested. The run stops at the next batch boundary.")
		return
	}

	b.reply(msg, "No analysis is running for this channel.")
}

func (b *Bot) handleStatus(ctx context.Context, msg *tgbotapi.Message) {
	channelID := chatIDString(msg.Chat.ID)

	if b.scout.Active(channelID) {
		b.reply(msg, "⏳ An analysis run is currently <b>in progress</b> for this channel.")
		return
	}

	rec, leads, err := b.scout.LatestRun(ctx, channelID)
	if err != nil {
		if coreerrors.Is(err, coreerrors.ErrRunNotFound) {
			b.reply(msg, "No analysis has been run for this channel yet. Use /analyze to start one.")
			return
		}

		b.reply(msg, fmt.Sprintf("❌ Error fetching status: %s", html.EscapeString(err.Error())))

		return
	}

	b.reply(msg, formatRunStatus(rec, leads))
}

func (b *Bot) handleReport(ctx context.Context, msg *tgbotapi.Message) {
	report, err := b.database.BuildLeadReport(ctx, reportTopLeads, reportTopPainPoints)
	if err != nil {
		b.reply(msg, fmt.Sprintf("❌ Error generating report: %s", html.EscapeString(err.Error())))
		return
	}

	b.reply(msg, formatLeadReport(report))
}
