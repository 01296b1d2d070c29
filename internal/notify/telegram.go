package notify

import (
	"log/slog"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"

	"vatbill/internal/config"
	"vatbill/lib/sl"
)

// Telegram posts operational payment events to a single admin chat.
// It is a one-way channel with no command handling.
type Telegram struct {
	api    *tgbotapi.Bot
	chatId int64
	log    *slog.Logger
}

// NewTelegram returns nil when the channel is not configured or the
// bot cannot be initialized; a nil channel drops messages silently.
func NewTelegram(conf *config.Config, logger *slog.Logger) *Telegram {
	if conf.Notify.TelegramApiKey == "" || conf.Notify.TelegramChatId == 0 {
		return nil
	}
	log := logger.With(sl.Module("notify.telegram"))

	api, err := tgbotapi.NewBot(conf.Notify.TelegramApiKey, nil)
	if err != nil {
		log.Error("telegram bot init failed", sl.Err(err))
		return nil
	}
	log.With(
		slog.String("bot", api.Username),
		slog.Int64("chat_id", conf.Notify.TelegramChatId),
	).Info("telegram channel enabled")

	return &Telegram{
		api:    api,
		chatId: conf.Notify.TelegramChatId,
		log:    log,
	}
}

func (t *Telegram) Notify(text string) {
	if text == "" {
		return
	}
	_, err := t.api.SendMessage(t.chatId, text, &tgbotapi.SendMessageOpts{})
	if err != nil {
		t.log.Warn("sending message", sl.Err(err))
	}
}
