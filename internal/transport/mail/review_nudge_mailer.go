package mail

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strings"
)

// ReviewNudgeMailer sends the "leave a review" nudge hosts can trigger from
// the dashboard to preview what their guests receive.
type ReviewNudgeMailer struct {
	host     string
	port     string
	username string
	password string
	from     string
}

func NewReviewNudgeMailer(host, port, username, password, from string) *ReviewNudgeMailer {
	return &ReviewNudgeMailer{
		host:     strings.TrimSpace(host),
		port:     strings.TrimSpace(port),
		username: username,
		password: password,
		from:     strings.TrimSpace(from),
	}
}

func (m *ReviewNudgeMailer) SendReviewNudge(ctx context.Context, email, guidebookTitle, reviewURL string) error {
	if m == nil {
		return errors.New("mailer not configured")
	}
	if m.host == "" || m.port == "" || m.from == "" {
		return errors.New("mailer missing configuration")
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	subject := fmt.Sprintf("How was your stay at %s?", guidebookTitle)
	body := fmt.Sprintf(
		"Thanks for staying with us!\n\nIf you have a minute, we would love a review:\n%s\n\nSafe travels,\n%s",
		reviewURL, guidebookTitle,
	)

	message := strings.Builder{}
	message.WriteString(fmt.Sprintf("From: %s\r\n", m.from))
	message.WriteString(fmt.Sprintf("To: %s\r\n", email))
	message.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	message.WriteString("MIME-Version: 1.0\r\n")
	message.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	message.WriteString("Content-Transfer-Encoding: 8bit\r\n\r\n")
	message.WriteString(body)
	message.WriteString("\r\n")

	addr := net.JoinHostPort(m.host, m.port)
	var auth smtp.Auth
	if m.username != "" || m.password != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}

	return smtp.SendMail(addr, auth, m.from, []string{email}, []byte(message.String()))
}
