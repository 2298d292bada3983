package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"task-reminder/internal/exceptions"
	"task-reminder/internal/logger"
	"task-reminder/internal/model"
	"task-reminder/internal/service"
)

// TaskManager is the part of the task service the bot drives.
type TaskManager interface {
	ListActive(ctx context.Context, userID int64) ([]model.Task, error)
	UpdateTask(ctx context.Context, userID int64, taskID uint, upd service.TaskUpdate) (*model.Task, error)
}

// UserRecorder remembers who talked to the bot.
type UserRecorder interface {
	UpsertFromTelegram(ctx context.Context, chatID int64, firstName, username string) error
}

// Bot answers commands and the inline buttons attached to notifications.
type Bot struct {
	api       *tgbotapi.BotAPI
	tasks     TaskManager
	users     UserRecorder
	webAppURL string
}

func New(api *tgbotapi.BotAPI, tasks TaskManager, users UserRecorder, webAppURL string) *Bot {
	return &Bot{api: api, tasks: tasks, users: users, webAppURL: webAppURL}
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = pollTimeout
	updates := b.api.GetUpdatesChan(updateConfig)

	logger.Info("start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		b.HandleUpdate(ctx, update)
	}

	logger.Info("stopped polling updates")
	return nil
}

// HandleUpdate dispatches a single update. Errors are logged, never returned.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
			logger.Error("handle callback", "error", err)
		}
	case update.Message != nil:
		if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
			return
		}
		if err := b.handleMessage(ctx, update.Message); err != nil {
			logger.Error("handle message", "chat_id", update.Message.Chat.ID, "error", err)
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}
	b.ensureUser(ctx, msg)

	if msg.IsCommand() {
		logger.Info("command received", "user_id", msg.From.ID, "command", msg.Command())
		return b.handleCommand(ctx, msg)
	}

	return b.sendText(msg.Chat.ID, "Задачи добавляются в планировщике. Нажми /start, чтобы открыть его.", nil)
}

func (b *Bot) ensureUser(ctx context.Context, msg *tgbotapi.Message) {
	if b.users == nil {
		return
	}
	if err := b.users.UpsertFromTelegram(ctx, msg.Chat.ID, msg.From.FirstName, msg.From.UserName); err != nil {
		logger.Warn("failed to upsert user", "chat_id", msg.Chat.ID, "error", err)
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start":
		return b.handleStart(msg)
	case "help":
		return b.handleHelp(msg)
	case "test":
		return b.sendText(msg.Chat.ID, "✅ Бот работает! Тестовое сообщение.", nil)
	case "tasks":
		return b.handleListTasks(ctx, msg)
	case "done":
		return b.handleUpdateCommand(ctx, msg, actionDone)
	case "delete":
		return b.handleUpdateCommand(ctx, msg, actionDelete)
	default:
		return b.sendText(msg.Chat.ID, "Команда не поддерживается. Загляни в /help.", nil)
	}
}

func (b *Bot) handleStart(msg *tgbotapi.Message) error {
	name := strings.TrimSpace(msg.From.FirstName)
	if name == "" {
		name = "друг"
	}

	text := fmt.Sprintf(
		"👋 Привет, %s!\n<b>Я планировщик задач и напоминаний.</b>\n\n"+
			"Добавляй задачи в планировщике, а я пришлю напоминание в нужное время.\n\n"+
			"• /tasks — активные задачи\n"+
			"• /help — подсказки",
		escape(name),
	)
	return b.sendText(msg.Chat.ID, text, openAppKeyboard(b.webAppURL))
}

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	text := "ℹ️ <b>Подсказки</b>\n" +
		"• /start — открыть планировщик\n" +
		"• /tasks — показать активные задачи\n" +
		"• /done &lt;id&gt; — отметить задачу выполненной\n" +
		"• /delete &lt;id&gt; — удалить задачу\n" +
		"• /test — проверить, что бот на связи\n\n" +
		"Под напоминанием о задаче есть кнопки: принять, взять в работу, завершить."
	return b.sendText(msg.Chat.ID, text, openAppKeyboard(b.webAppURL))
}

func (b *Bot) handleListTasks(ctx context.Context, msg *tgbotapi.Message) error {
	tasks, err := b.tasks.ListActive(ctx, msg.From.ID)
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		return b.sendText(msg.Chat.ID, "Активных задач нет. Добавь новую через /start.", nil)
	}

	var sb strings.Builder
	sb.WriteString("📋 <b>Активные задачи</b>\n\n")
	for _, task := range tasks {
		sb.WriteString(formatTask(task))
		sb.WriteString("\n")
	}
	return b.sendText(msg.Chat.ID, sb.String(), taskListKeyboard(tasks))
}

func (b *Bot) handleUpdateCommand(ctx context.Context, msg *tgbotapi.Message, action string) error {
	args := strings.TrimSpace(msg.CommandArguments())
	if args == "" {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Укажи ID задачи: /%s 12", msg.Command()), nil)
	}
	taskID, err := strconv.ParseUint(args, 10, 64)
	if err != nil {
		return b.sendText(msg.Chat.ID, "ID задачи должен быть числом.", nil)
	}

	upd, reply := actionUpdate(action)
	task, err := b.tasks.UpdateTask(ctx, msg.From.ID, uint(taskID), upd)
	if errors.Is(err, exceptions.ErrTaskNotFound) {
		return b.sendText(msg.Chat.ID, "Задача не найдена.", nil)
	}
	if err != nil {
		return err
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("%s: %s", reply, escape(shortTitle(task.Text, 64))), nil)
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil {
		return nil
	}

	action, taskID, err := parseCallback(cb.Data)
	if err != nil {
		b.answerCallback(cb.ID, "")
		return nil
	}
	logger.Info("callback received", "user_id", cb.From.ID, "action", action, "task_id", taskID)

	upd, reply := actionUpdate(action)
	task, err := b.tasks.UpdateTask(ctx, cb.From.ID, taskID, upd)
	if errors.Is(err, exceptions.ErrTaskNotFound) {
		b.answerCallback(cb.ID, "Задача не найдена")
		return nil
	}
	if err != nil {
		b.answerCallback(cb.ID, "Не получилось, попробуй ещё раз")
		return err
	}

	b.answerCallback(cb.ID, reply)
	if cb.Message != nil && cb.Message.Chat != nil {
		b.refreshButtons(cb.Message, task.ID, action)
	}
	return nil
}

// actionUpdate maps a button or command to the task change and the user-facing reply.
func actionUpdate(action string) (service.TaskUpdate, string) {
	yes := true
	switch action {
	case actionAccept:
		status := model.StatusActive
		return service.TaskUpdate{Status: &status}, "👌 Принято"
	case actionProgress:
		status := model.StatusInProgress
		return service.TaskUpdate{Status: &status}, "⏳ В работе"
	case actionDelete:
		return service.TaskUpdate{Deleted: &yes}, "🗑 Удалено"
	default:
		return service.TaskUpdate{Completed: &yes}, "✅ Выполнено"
	}
}

// refreshButtons keeps only the buttons that still make sense after action.
func (b *Bot) refreshButtons(msg *tgbotapi.Message, taskID uint, action string) {
	markup := emptyKeyboard()
	if action == actionAccept || action == actionProgress {
		markup = doneOnlyKeyboard(taskID)
	}
	edit := tgbotapi.NewEditMessageReplyMarkup(msg.Chat.ID, msg.MessageID, markup)
	if _, err := b.api.Request(edit); err != nil {
		logger.Warn("edit reply markup", "chat_id", msg.Chat.ID, "error", err)
	}
}

func (b *Bot) answerCallback(callbackID, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		logger.Warn("callback ack", "error", err)
	}
}

func (b *Bot) sendText(chatID int64, text string, markup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	_, err := b.api.Send(msg)
	return err
}

func escape(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeHTML, s)
}

func formatTask(task model.Task) string {
	var sb strings.Builder

	icon := strings.TrimSpace(task.Emoji)
	if icon == "" {
		icon = model.DefaultEmoji
	}
	sb.WriteString(fmt.Sprintf("%s <b>#%d</b> %s", icon, task.ID, escape(shortTitle(task.Text, 80))))

	if when := formatWhen(task); when != "" {
		sb.WriteString(" — ")
		sb.WriteString(when)
	}
	if task.Status == model.StatusInProgress {
		sb.WriteString(" ⏳")
	}
	if task.RemindAt != nil && !task.ReminderSent {
		sb.WriteString(" 🔔")
	}
	return sb.String()
}

func formatWhen(task model.Task) string {
	var parts []string
	if task.Date != nil {
		if d, err := service.ParseDate(*task.Date); err == nil {
			parts = append(parts, d.Format("02.01"))
		}
	}
	if task.Time != nil {
		parts = append(parts, *task.Time)
	}
	return strings.Join(parts, " ")
}

func shortTitle(title string, maxLen int) string {
	title = strings.Join(strings.Fields(title), " ")
	runes := []rune(title)
	if len(runes) <= maxLen {
		return title
	}
	return string(runes[:maxLen-1]) + "…"
}
