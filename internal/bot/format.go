package bot

import (
	"fmt"
	"html"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/lueurxax/lead-scout-bot/internal/analysis"
	"github.com/lueurxax/lead-scout-bot/internal/storage"
)

const (
	maxLeadsShown      = 5
	maxTermsShown      = 3
	timeFormatReadable = "2006-01-02 15:04 UTC"
)

// cases.Caser carries internal state, so each call builds its own.
func tierLabel(tier string) string {
	return cases.Title(language.English).String(tier)
}

// formatRunResult renders a finished (or failed) run for the operator. A
// failed run reports how many batches succeeded and still offers the partial
// leaderboard computed before the failure.
func formatRunResult(result *analysis.Result, runErr error) string {
	var sb strings.Builder

	if result.Run.Status == analysis.StatusCompleted {
		sb.WriteString("✅ <b>Channel Analysis Complete</b>\n\n")
	} else {
		sb.WriteString("❌ <b>Channel Analysis Failed</b>\n")
		sb.WriteString(fmt.Sprintf("<i>%s</i>\n", html.EscapeString(result.Run.Error)))
		sb.WriteString(fmt.Sprintf("Batches completed before failure: <code>%d/%d</code>\n\n", result.BatchesCompleted, result.TotalBatches))

		if runErr != nil && len(result.Records) > 0 {
			sb.WriteString("Partial results from completed batches:\n\n")
		}
	}

	sb.WriteString(fmt.Sprintf("🎯 <b>Potential customers:</b> <code>%d</code>\n", len(result.Records)))

	if len(result.Skipped) > 0 {
		sb.WriteString(fmt.Sprintf("⚠️ <b>Skipped batches:</b> <code>%d</code>\n", len(result.Skipped)))
	}

	if len(result.Records) == 0 {
		return sb.String()
	}

	sb.WriteString("\n🌟 <b>Top Prospects</b>\n")

	for i, rec := range result.Records {
		if i >= maxLeadsShown {
			break
		}

		sb.WriteString(fmt.Sprintf("<b>%d. %s</b> — score <code>%.2f</code>, %s tier, %d messages\n",
			i+1, html.EscapeString(displayName(rec.ParticipantName, rec.ParticipantID)),
			rec.CombinedScore, tierLabel(rec.EngagementTier), rec.QualifyingMessages))

		if len(rec.PainPoints) > 0 {
			sb.WriteString(fmt.Sprintf("   Pain points: <i>%s</i>\n", html.EscapeString(joinFirst(rec.PainPoints, maxTermsShown))))
		}

		if len(rec.Interests) > 0 {
			sb.WriteString(fmt.Sprintf("   Interests: <i>%s</i>\n", html.EscapeString(joinFirst(rec.Interests, maxTermsShown))))
		}
	}

	return sb.String()
}

func formatRunStatus(rec *storage.RunRecord, leads []analysis.ScoringRecord) string {
	var sb strings.Builder

	sb.WriteString("📊 <b>Latest Analysis Run</b>\n\n")
	sb.WriteString(fmt.Sprintf("• <b>Status:</b> <code>%s</code>\n", rec.Run.Status))
	sb.WriteString(fmt.Sprintf("• <b>Started:</b> <code>%s</code>\n", rec.Run.StartedAt.Format(timeFormatReadable)))

	if !rec.Run.CompletedAt.IsZero() {
		sb.WriteString(fmt.Sprintf("• <b>Finished:</b> <code>%s</code>\n", rec.Run.CompletedAt.Format(timeFormatReadable)))
	}

	sb.WriteString(fmt.Sprintf("• <b>Batches:</b> <code>%d/%d</code>\n", rec.BatchesCompleted, rec.TotalBatches))
	sb.WriteString(fmt.Sprintf("• <b>Leads found:</b> <code>%d</code>\n", len(leads)))

	if rec.Run.Error != "" {
		sb.WriteString(fmt.Sprintf("• <b>Error:</b> <i>%s</i>\n", html.EscapeString(rec.Run.Error)))
	}

	return sb.String()
}

func formatLeadReport(report *storage.LeadReport) string {
	var sb strings.Builder

	sb.WriteString("📊 <b>Customer Analysis Report</b>\n\n")
	sb.WriteString(fmt.Sprintf("• <b>Total potential customers:</b> <code>%d</code>\n", report.TotalLeads))
	sb.WriteString(fmt.Sprintf("• <b>High priority leads:</b> <code>%d</code>\n", report.HighTierCount))
	sb.WriteString(fmt.Sprintf("• <b>Messages analyzed:</b> <code>%d</code>\n", report.TotalMessages))

	if len(report.TopPainPoints) > 0 {
		sb.WriteString("\n🎯 <b>Top Pain Points</b>\n")

		for _, pp := range report.TopPainPoints {
			sb.WriteString(fmt.Sprintf("• %s (%d mentions)\n", html.EscapeString(pp.PainPoint), pp.Count))
		}
	}

	if len(report.TopLeads) > 0 {
		sb.WriteString("\n🌟 <b>Top Leads</b>\n")

		for i, lead := range report.TopLeads {
			sb.WriteString(fmt.Sprintf("<b>%d. %s</b> — score <code>%.2f</code>, %s tier, %d messages\n",
				i+1, html.EscapeString(displayName(lead.ParticipantName, lead.ParticipantID)),
				lead.Score, tierLabel(lead.EngagementTier), lead.MessageCount))
		}
	}

	return sb.String()
}

func displayName(name, id string) string {
	if name != "" {
		return name
	}

	return id
}

func joinFirst(items []string, limit int) string {
	if len(items) > limit {
		items = items[:limit]
	}

	return strings.Join(items, ", ")
}
