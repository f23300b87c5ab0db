package services

import (
	"context"
	"errors"
	"fmt"

	"game-economy-service/models"
	"game-economy-service/monitoring"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Notifier delivers a text message to a user. Delivery is best effort.
type Notifier interface {
	Send(ctx context.Context, userID, text string) error
}

// notify sends and swallows the error; callers never fail on delivery.
func notify(ctx context.Context, n Notifier, log *zap.Logger, userID, text string) {
	if n == nil {
		return
	}
	if err := n.Send(ctx, userID, text); err != nil {
		monitoring.NotificationFailures.Inc()
		log.Warn("notification not delivered", zap.String("user_id", userID), zap.Error(err))
	}
}

// LogNotifier writes messages to the log. Used when no bot token is configured.
type LogNotifier struct {
	log *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{log: logger.Named("notify")}
}

func (n *LogNotifier) Send(_ context.Context, userID, text string) error {
	n.log.Info("message", zap.String("user_id", userID), zap.String("text", text))
	return nil
}

// botSender is the part of *tgbotapi.BotAPI the notifier uses.
type botSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier resolves the user's Telegram id and sends through the Bot API.
type TelegramNotifier struct {
	DB  *gorm.DB
	bot botSender
}

func NewTelegramNotifier(db *gorm.DB, token string) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}
	return &TelegramNotifier{DB: db, bot: bot}, nil
}

func (n *TelegramNotifier) Send(ctx context.Context, userID, text string) error {
	var user models.User
	err := n.DB.WithContext(ctx).Select("id", "telegram_id").First(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("no telegram chat for user %s", userID)
	}
	if err != nil {
		return fmt.Errorf("resolve telegram chat for %s: %w", userID, err)
	}

	msg := tgbotapi.NewMessage(user.TelegramID, text)
	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send to %d: %w", user.TelegramID, err)
	}
	return nil
}
