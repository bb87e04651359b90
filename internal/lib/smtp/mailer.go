package smtp

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoRecipients возвращается при отправке письма без получателей.
var ErrNoRecipients = errors.New("no recipients")

// Message - текстовое письмо.
type Message struct {
	To      []string
	Subject string
	Body    string
}

// Build собирает письмо в формате RFC 5322.
func (m Message) Build(from string) []byte {
	return []byte(strings.Join([]string{
		"From: " + from,
		"To: " + strings.Join(m.To, ", "),
		"Subject: " + m.Subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		m.Body,
	}, "\r\n"))
}

// Mailer отправляет письма через транспорт.
type Mailer struct {
	transport TransportInterface
}

// NewMailer создает Mailer поверх транспорта.
func NewMailer(transport TransportInterface) *Mailer {
	return &Mailer{transport: transport}
}

// Send отправляет одно письмо, открывая отдельное соединение.
func (m *Mailer) Send(msg Message) error {
	const op = "smtp.Send"

	if len(msg.To) == 0 {
		return ErrNoRecipients
	}

	client, err := m.transport.Connect()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = client.Close()
	}()

	from := m.transport.From()
	if err := client.Mail(from); err != nil {
		return fmt.Errorf("%s: mail from: %w", op, err)
	}
	for _, addr := range msg.To {
		if err := client.Rcpt(addr); err != nil {
			return fmt.Errorf("%s: rcpt %s: %w", op, addr, err)
		}
	}

	wc, err := client.Data()
	if err != nil {
		return fmt.Errorf("%s: data: %w", op, err)
	}
	if _, err = wc.Write(msg.Build(from)); err != nil {
		_ = wc.Close()
		return fmt.Errorf("%s: write: %w", op, err)
	}
	if err = wc.Close(); err != nil {
		return fmt.Errorf("%s: close data: %w", op, err)
	}
	if err = client.Quit(); err != nil {
		return fmt.Errorf("%s: quit: %w", op, err)
	}
	return nil
}
