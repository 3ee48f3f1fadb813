// Package email delivers reminders over SMTP.
package email

import (
	"fmt"

	"gopkg.in/mail.v2"
)

// Client sends plain-text reminder mails.
type Client struct {
	dialer *mail.Dialer
	from   string
}

func NewClient(smtpHost string, smtpPort int, username, password, from string) *Client {
	return &Client{
		dialer: mail.NewDialer(smtpHost, smtpPort, username, password),
		from:   from,
	}
}

// Send mails msg to the given address.
func (c *Client) Send(to, msg string) error {
	m := mail.NewMessage()

	m.SetHeader("From", c.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", "Contest reminder")
	m.SetBody("text/plain", msg)

	if err := c.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}

	return nil
}
