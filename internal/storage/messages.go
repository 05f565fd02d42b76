package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/lueurxax/lead-scout-bot/internal/analysis"
	coreerrors "github.com/lueurxax/lead-scout-bot/internal/core/errors"
)

// ChatMessage is one ingested chat message.
type ChatMessage struct {
	ChannelID         string
	PlatformMessageID int64
	AuthorID          string
	AuthorName        string
	Text              string
	SentAt            time.Time
}

// SaveMessage inserts a message, ignoring duplicates of the same platform
// message in the same channel.
func (db *DB) SaveMessage(ctx context.Context, msg *ChatMessage) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO chat_messages (channel_id, platform_message_id, author_id, author_name, text, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (channel_id, platform_message_id) DO NOTHING`,
		msg.ChannelID, msg.PlatformMessageID, msg.AuthorID,
		SanitizeUTF8(msg.AuthorName), SanitizeUTF8(msg.Text), toTimestamptz(msg.SentAt))
	if err != nil {
		return fmt.Errorf("save message: %w", err)
	}

	return nil
}

// GetChannelMessages fetches a channel's message window in source order:
// the most recent `limit` messages since `since`, ordered oldest first.
// Failures surface as the source-unavailable sentinel because this is the
// analysis pipeline's message source.
func (db *DB) GetChannelMessages(ctx context.Context, channelID string, since time.Time, limit int) ([]analysis.Message, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT author_id, author_name, text, sent_at, channel_id
		FROM (
			SELECT author_id, author_name, text, sent_at, channel_id, platform_message_id
			FROM chat_messages
			WHERE channel_id = $1 AND sent_at >= $2
			ORDER BY sent_at DESC, platform_message_id DESC
			LIMIT $3
		) recent
		ORDER BY sent_at ASC, platform_message_id ASC`,
		channelID, toTimestamptz(since), limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", coreerrors.ErrSourceUnavailable, err)
	}
	defer rows.Close()

	var messages []analysis.Message

	for rows.Next() {
		var m analysis.Message
		if err := rows.Scan(&m.AuthorID, &m.AuthorName, &m.Text, &m.Timestamp, &m.ChannelID); err != nil {
			return nil, fmt.Errorf("%w: %v", coreerrors.ErrSourceUnavailable, err)
		}

		messages = append(messages, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", coreerrors.ErrSourceUnavailable, err)
	}

	return messages, nil
}

// ChannelBacklog describes a channel with messages newer than its last
// completed analysis run.
type ChannelBacklog struct {
	ChannelID string
	Pending   int
}

// ChannelsWithBacklog lists channels whose unanalyzed message count reached
// minPending, for the periodic worker sweep.
func (db *DB) ChannelsWithBacklog(ctx context.Context, minPending int) ([]ChannelBacklog, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT m.channel_id, count(*) AS pending
		FROM chat_messages m
		WHERE m.sent_at > COALESCE((
			SELECT max(r.started_at) FROM analysis_runs r
			WHERE r.channel_id = m.channel_id AND r.status = 'completed'
		), 'epoch'::timestamptz)
		GROUP BY m.channel_id
		HAVING count(*) >= $1
		ORDER BY pending DESC`,
		minPending)
	if err != nil {
		return nil, fmt.Errorf("channels with backlog: %w", err)
	}
	defer rows.Close()

	var backlogs []ChannelBacklog

	for rows.Next() {
		var b ChannelBacklog
		if err := rows.Scan(&b.ChannelID, &b.Pending); err != nil {
			return nil, fmt.Errorf("channels with backlog: %w", err)
		}

		backlogs = append(backlogs, b)
	}

	return backlogs, rows.Err()
}
