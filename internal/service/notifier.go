package service

import (
	"context"
	"fmt"
	"stockwatch/config"
	"stockwatch/internal/dto"
	"stockwatch/pkg/logger"
	"strconv"
	"time"

	"golang.org/x/time/rate"
	"gopkg.in/telebot.v3"
)

// Notifier pushes operator notifications to a Telegram chat. It only ever
// sends; the bot is never started as a poller.
type Notifier struct {
	cfg     *config.Config
	log     *logger.Logger
	bot     *telebot.Bot
	chatID  telebot.ChatID
	limiter *rate.Limiter
}

// NewNotifier creates the Telegram notifier, or returns nil when the bot
// is not configured. A nil *Notifier is safe to use.
func NewNotifier(cfg *config.Config, log *logger.Logger) (*Notifier, error) {
	if cfg.Telegram.BotToken == "" || cfg.Telegram.ChatID == "" {
		return nil, nil
	}

	chatID, err := strconv.ParseInt(cfg.Telegram.ChatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid telegram chat id %q: %w", cfg.Telegram.ChatID, err)
	}

	bot, err := telebot.NewBot(telebot.Settings{
		Token: cfg.Telegram.BotToken,
		OnError: func(err error, c telebot.Context) {
			log.Error("Telegram bot error", logger.ErrorField(err))
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	perSecond := cfg.Telegram.MaxGlobalRequestPerSecond
	if perSecond <= 0 {
		perSecond = 1
	}

	return &Notifier{
		cfg:     cfg,
		log:     log,
		bot:     bot,
		chatID:  telebot.ChatID(chatID),
		limiter: rate.NewLimiter(rate.Limit(perSecond), perSecond),
	}, nil
}

// NotifyFailure reports a newly observed failed run.
func (n *Notifier) NotifyFailure(ctx context.Context, item dto.AlertHistoryItem) {
	if n == nil {
		return
	}

	msg := fmt.Sprintf("⚠️ Stock alert run %d failed at %s", item.ID, item.ExecutedAt)
	if item.ErrorMessage != nil && *item.ErrorMessage != "" {
		msg += fmt.Sprintf("\nError: %s", *item.ErrorMessage)
	}
	n.send(ctx, msg)
}

// NotifyTriggered reports a manual trigger so other operators see it.
func (n *Notifier) NotifyTriggered(ctx context.Context) {
	if n == nil {
		return
	}
	n.send(ctx, fmt.Sprintf("▶️ Stock alert job triggered manually at %s", time.Now().Format("15:04:05")))
}

func (n *Notifier) send(ctx context.Context, msg string) {
	if err := n.limiter.Wait(ctx); err != nil {
		return
	}
	if _, err := n.bot.Send(n.chatID, msg); err != nil {
		n.log.WarnContext(ctx, "Failed to send telegram notification", logger.ErrorField(err))
	}
}
