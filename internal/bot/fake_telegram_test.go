package bot

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type apiCall struct {
	method string
	params url.Values
}

// fakeTelegram is a minimal Bot API endpoint that records every call.
type fakeTelegram struct {
	mu      sync.Mutex
	calls   []apiCall
	blocked map[string]bool
}

func newFakeTelegram(t *testing.T) (*fakeTelegram, *tgbotapi.BotAPI) {
	t.Helper()
	f := &fakeTelegram{blocked: make(map[string]bool)}
	srv := httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(srv.Close)

	api, err := NewAPI("TEST-TOKEN", srv.URL+"/bot%s/%s")
	if err != nil {
		t.Fatalf("new api: %v", err)
	}
	return f, api
}

func (f *fakeTelegram) serve(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	method := path.Base(r.URL.Path)

	f.mu.Lock()
	f.calls = append(f.calls, apiCall{method: method, params: r.PostForm})
	blocked := f.blocked[r.PostForm.Get("chat_id")]
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch method {
	case "getMe":
		fmt.Fprint(w, `{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"Planner","username":"planner_bot"}}`)
	case "sendMessage":
		if blocked {
			fmt.Fprint(w, `{"ok":false,"error_code":403,"description":"Forbidden: bot was blocked by the user"}`)
			return
		}
		fmt.Fprintf(w, `{"ok":true,"result":{"message_id":10,"date":0,"chat":{"id":%s,"type":"private"}}}`, r.PostForm.Get("chat_id"))
	default:
		fmt.Fprint(w, `{"ok":true,"result":true}`)
	}
}

func (f *fakeTelegram) block(chatID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blocked[chatID] = true
}

// callsTo returns recorded calls of one Bot API method.
func (f *fakeTelegram) callsTo(method string) []apiCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []apiCall
	for _, c := range f.calls {
		if c.method == method {
			out = append(out, c)
		}
	}
	return out
}

func commandUpdate(userID int64, text string) tgbotapi.Update {
	command := strings.Fields(text)[0]
	return tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: userID, FirstName: "Ann"},
		Chat:      &tgbotapi.Chat{ID: userID, Type: "private"},
		Text:      text,
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(command)}},
	}}
}

func callbackUpdate(userID int64, data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:   "cb-1",
		From: &tgbotapi.User{ID: userID},
		Message: &tgbotapi.Message{
			MessageID: 10,
			Chat:      &tgbotapi.Chat{ID: userID, Type: "private"},
		},
		Data: data,
	}}
}
