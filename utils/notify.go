package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"
)

// ChatNotifier delivers DMs and channel posts through the Telegram bot API.
// Every call is best-effort advisory: callers log failures and move on, a
// notification must never roll back the transition that triggered it.
type ChatNotifier struct {
	token  string
	client *http.Client
}

func NewChatNotifier() *ChatNotifier {
	return &ChatNotifier{
		token:  os.Getenv("TELEGRAM_BOT_TOKEN"),
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

type chatMessage struct {
	ChatID    int64  `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode,omitempty"`
}

func (n *ChatNotifier) send(ctx context.Context, chatID int64, content string) error {
	if n.token == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN not set")
	}
	body, err := json.Marshal(chatMessage{ChatID: chatID, Text: content})
	if err != nil {
		return err
	}
	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", n.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API returned %d", resp.StatusCode)
	}
	return nil
}

// SendDirectMessage DMs a member; their external id is the chat id.
func (n *ChatNotifier) SendDirectMessage(ctx context.Context, externalID, content string) error {
	chatID, err := strconv.ParseInt(externalID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid external id %q: %w", externalID, err)
	}
	return n.send(ctx, chatID, content)
}

func (n *ChatNotifier) SendToChannel(ctx context.Context, channelID, content string) error {
	chatID, err := strconv.ParseInt(channelID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid channel id %q: %w", channelID, err)
	}
	return n.send(ctx, chatID, content)
}
