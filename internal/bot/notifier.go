package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"task-reminder/internal/logger"
	"task-reminder/internal/service"
)

// TelegramNotifier delivers reminder notifications as bot messages.
type TelegramNotifier struct {
	api *tgbotapi.BotAPI
}

func NewTelegramNotifier(api *tgbotapi.BotAPI) *TelegramNotifier {
	return &TelegramNotifier{api: api}
}

func (n *TelegramNotifier) Send(ctx context.Context, note service.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(note.UserID, note.Text)
	msg.ParseMode = tgbotapi.ModeHTML
	if note.Actionable {
		msg.ReplyMarkup = taskActionsKeyboard(note.TaskID)
	}

	if _, err := n.api.Send(msg); err != nil {
		return fmt.Errorf("send notification to %d: %w", note.UserID, err)
	}
	return nil
}

// NotifyAdmin tells the operator that the service came up. Failures are only logged.
func (n *TelegramNotifier) NotifyAdmin(ctx context.Context, adminID int64) {
	if adminID == 0 || ctx.Err() != nil {
		return
	}
	msg := tgbotapi.NewMessage(adminID, "🤖 Бот планировщика успешно запущен!")
	if _, err := n.api.Send(msg); err != nil {
		logger.Error("notify admin", "admin_id", adminID, "error", err)
	}
}
