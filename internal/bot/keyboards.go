package bot

import (
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"task-reminder/internal/model"
)

const callbackPrefix = "task"

const (
	actionAccept   = "accept"
	actionProgress = "progress"
	actionDone     = "done"
	actionDelete   = "delete"
)

const (
	btnAccept   = "👌 Принять"
	btnProgress = "⏳ В работе"
	btnDone     = "✅ Готово"
	btnDelete   = "🗑"
	btnOpenApp  = "📝 Открыть планировщик"
)

func callbackData(action string, taskID uint) string {
	return fmt.Sprintf("%s:%s:%d", callbackPrefix, action, taskID)
}

// parseCallback splits "task:<action>:<id>".
func parseCallback(data string) (string, uint, error) {
	parts := strings.Split(data, ":")
	if len(parts) != 3 || parts[0] != callbackPrefix {
		return "", 0, fmt.Errorf("unexpected callback %q", data)
	}
	switch parts[1] {
	case actionAccept, actionProgress, actionDone, actionDelete:
	default:
		return "", 0, fmt.Errorf("unknown callback action %q", parts[1])
	}
	id, err := strconv.ParseUint(parts[2], 10, 64)
	if err != nil || id == 0 {
		return "", 0, fmt.Errorf("invalid task id in %q", data)
	}
	return parts[1], uint(id), nil
}

func taskActionsKeyboard(taskID uint) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(btnAccept, callbackData(actionAccept, taskID)),
			tgbotapi.NewInlineKeyboardButtonData(btnProgress, callbackData(actionProgress, taskID)),
			tgbotapi.NewInlineKeyboardButtonData(btnDone, callbackData(actionDone, taskID)),
		),
	)
}

func doneOnlyKeyboard(taskID uint) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(btnDone, callbackData(actionDone, taskID)),
		),
	)
}

func emptyKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}}
}

// taskListKeyboard offers done / delete buttons for each listed task.
func taskListKeyboard(tasks []model.Task) *tgbotapi.InlineKeyboardMarkup {
	if len(tasks) == 0 {
		return nil
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(tasks))
	for _, task := range tasks {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("%s #%d", btnDone, task.ID), callbackData(actionDone, task.ID)),
			tgbotapi.NewInlineKeyboardButtonData(btnDelete, callbackData(actionDelete, task.ID)),
		))
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &markup
}

// The pinned Bot API client predates Web App buttons, so the reply keyboard is
// spelled out with the wire field names.
type webAppInfo struct {
	URL string `json:"url"`
}

type webAppButton struct {
	Text   string      `json:"text"`
	WebApp *webAppInfo `json:"web_app,omitempty"`
}

type webAppKeyboard struct {
	Keyboard       [][]webAppButton `json:"keyboard"`
	ResizeKeyboard bool             `json:"resize_keyboard"`
}

func openAppKeyboard(url string) interface{} {
	if strings.TrimSpace(url) == "" {
		return nil
	}
	return webAppKeyboard{
		Keyboard:       [][]webAppButton{{{Text: btnOpenApp, WebApp: &webAppInfo{URL: url}}}},
		ResizeKeyboard: true,
	}
}
