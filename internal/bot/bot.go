// Package bot provides the Telegram surface of the lead scout: it ingests
// group-chat messages into storage and exposes operator commands to run and
// inspect channel analyses.
package bot

import (
	"context"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/lueurxax/lead-scout-bot/internal/config"
	"github.com/lueurxax/lead-scout-bot/internal/observability"
	"github.com/lueurxax/lead-scout-bot/internal/scout"
	"github.com/lueurxax/lead-scout-bot/internal/storage"
)

const updateTimeoutSeconds = 60

type Bot struct {
	cfg      *config.Config
	database *storage.DB
	scout    *scout.Scout
	api      *tgbotapi.BotAPI
	logger   *zerolog.Logger
}

func New(cfg *config.Config, database *storage.DB, sc *scout.Scout, logger *zerolog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, err
	}

	return &Bot{
		cfg:      cfg,
		database: database,
		scout:    sc,
		api:      api,
		logger:   logger,
	}, nil
}

func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = updateTimeoutSeconds

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update := <-updates:
			if update.Message == nil {
				continue
			}

			b.handleUpdate(ctx, update.Message)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, msg *tgbotapi.Message) {
	if msg.IsCommand() {
		if !b.isAdmin(msg.From.ID) {
			b.logger.Warn().Int64("user_id", msg.From.ID).Str("username", msg.From.UserName).Msg("Unauthorized command attempt")
			return
		}

		b.handleCommand(ctx, msg)

		return
	}

	b.ingestMessage(ctx, msg)
}

// ingestMessage saves a group message so later analysis runs can read the
// channel window back from storage. Bot-authored messages are skipped.
func (b *Bot) ingestMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil || msg.From.IsBot || msg.Text == "" {
		return
	}

	if !msg.Chat.IsGroup() && !msg.Chat.IsSuperGroup() {
		return
	}

	channelID := chatIDString(msg.Chat.ID)

	err := b.database.SaveMessage(ctx, &storage.ChatMessage{
		ChannelID:         channelID,
		PlatformMessageID: int64(msg.MessageID),
		AuthorID:          strconv.FormatInt(msg.From.ID, 10),
		AuthorName:        msg.From.UserName,
		Text:              msg.Text,
		SentAt:            msg.Time(),
	})
	if err != nil {
		b.logger.Error().Err(err).Str("channel_id", channelID).Msg("failed to ingest message")
		return
	}

	observability.MessagesIngested.WithLabelValues(channelID).Inc()
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	b.logger.Info().Str("command", msg.Command()).Int64("user_id", msg.From.ID).Msg("Handling command")

	switch msg.Command() {
	case "start", "help":
		b.handleHelp(msg)
	case "analyze":
		b.handleAnalyze(ctx, msg)
	case "cancel":
		b.handleCancel(msg)
	case "status":
		b.handleStatus(ctx, msg)
	case "report":
		b.handleReport(ctx, msg)
	default:
		b.reply(msg, "Unknown command. Use /help for options.")
	}
}

func (b *Bot) isAdmin(userID int64) bool {
	for _, id := range b.cfg.AdminIDs {
		if id == userID {
			return true
		}
	}

	return false
}

func (b *Bot) reply(msg *tgbotapi.Message, text string) {
	reply := tgbotapi.NewMessage(msg.Chat.ID, text)
	reply.ParseMode = tgbotapi.ModeHTML
	reply.ReplyToMessageID = msg.MessageID

	if _, err := b.api.Send(reply); err != nil {
		b.logger.Error().Err(err).Msg("failed to send reply")
	}
}

func (b *Bot) send(chatID int64, text string) int {
	m := tgbotapi.NewMessage(chatID, text)
	m.ParseMode = tgbotapi.ModeHTML

	sent, err := b.api.Send(m)
	if err != nil {
		b.logger.Error().Err(err).Msg("failed to send message")
		return 0
	}

	return sent.MessageID
}

func (b *Bot) edit(chatID int64, messageID int, text string) {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = tgbotapi.ModeHTML

	if _, err := b.api.Send(edit); err != nil {
		b.logger.Error().Err(err).Msg("failed to edit message")
	}
}

func chatIDString(id int64) string {
	return strconv.FormatInt(id, 10)
}
