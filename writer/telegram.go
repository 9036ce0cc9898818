package writer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"niftyflow/config"
	"niftyflow/logger"
	"niftyflow/models"
)

// BotAPI is the part of the Telegram client used for delivery.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramWriter posts report messages to one chat or channel.
type TelegramWriter struct {
	bot       BotAPI
	recipient string
	chatID    int64
	log       *logger.Log
}

// NewTelegramWriter returns a writer for cfg.ChatID, which is either a
// numeric chat id or "@channel". No request is made here; an unreachable Bot
// API surfaces as a per-message error from Write.
func NewTelegramWriter(cfg config.TelegramConfig) (*TelegramWriter, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is required")
	}
	endpoint := cfg.APIEndpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	bot := &tgbotapi.BotAPI{
		Token:  cfg.Token,
		Client: &http.Client{Timeout: timeout},
		Buffer: 100,
	}
	bot.SetAPIEndpoint(endpoint)

	return NewTelegramWriterWithBot(bot, cfg.ChatID)
}

func NewTelegramWriterWithBot(bot BotAPI, recipient string) (*TelegramWriter, error) {
	recipient = strings.TrimSpace(recipient)
	w := &TelegramWriter{bot: bot, recipient: recipient, log: logger.GetLogger()}
	if strings.HasPrefix(recipient, "@") {
		return w, nil
	}
	id, err := strconv.ParseInt(recipient, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid telegram recipient %q", recipient)
	}
	w.chatID = id
	return w, nil
}

func (w *TelegramWriter) messageConfig(msg models.Message) tgbotapi.MessageConfig {
	var mc tgbotapi.MessageConfig
	if w.chatID == 0 {
		mc = tgbotapi.NewMessageToChannel(w.recipient, msg.Text)
	} else {
		mc = tgbotapi.NewMessage(w.chatID, msg.Text)
	}
	switch msg.Mode {
	case models.ParseMarkdown:
		mc.ParseMode = tgbotapi.ModeMarkdown
	case models.ParseHTML:
		mc.ParseMode = tgbotapi.ModeHTML
	}
	mc.DisableWebPagePreview = true
	return mc
}

// Write sends one message. It does not retry.
func (w *TelegramWriter) Write(ctx context.Context, msg models.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	log := w.log.WithComponent("telegram_writer").WithFields(logger.Fields{
		"recipient":  w.recipient,
		"parse_mode": string(msg.Mode),
		"length":     len(msg.Text),
	})

	start := time.Now()
	sent, err := w.bot.Send(w.messageConfig(msg))
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	logger.LogPerformanceEntry(log, "telegram_writer", "send", time.Since(start), logger.Fields{"message_id": sent.MessageID})
	return nil
}
