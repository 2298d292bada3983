package bot

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"task-reminder/internal/logger"
)

// pollTimeout is the long-polling window of getUpdates, in seconds.
const pollTimeout = 60

// NewAPI authorizes against the Bot API. An empty endpoint means the public
// api.telegram.org; it must contain two %s verbs for the token and method.
func NewAPI(token, endpoint string) (*tgbotapi.BotAPI, error) {
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	if err := tgbotapi.SetLogger(logger.StdLogger(slog.LevelDebug)); err != nil {
		return nil, fmt.Errorf("set bot logger: %w", err)
	}

	// The client timeout must outlast a long-poll request.
	client := &http.Client{Timeout: (pollTimeout + 15) * time.Second}
	api, err := tgbotapi.NewBotAPIWithClient(token, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	logger.Info("bot authorized", "username", api.Self.UserName)
	return api, nil
}
