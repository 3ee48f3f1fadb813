// Package telegram delivers reminders through the Telegram Bot API.
package telegram

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const apiBase = "https://api.telegram.org"

// Client sends messages as a Telegram bot. Delivery is best-effort: a
// failed send is reported to the caller and never retried here.
type Client struct {
	token  string
	client *http.Client
}

func NewClient(token string) *Client {
	return &Client{
		token:  token,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Send posts msg to the chat identified by to.
func (c *Client) Send(to, msg string) error {
	form := url.Values{}
	form.Set("chat_id", to)
	form.Set("text", msg)

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", apiBase, c.token)

	resp, err := c.client.Post(endpoint, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("telegram API error: %s: %s", resp.Status, body)
	}

	return nil
}
