package mail

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"gamestore/internal/usecase"
)

const implicitTLSPort = 465

var errHeaderInjection = errors.New("header contains line break")

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPMailer はHTMLメールをSMTPで送る。
type SMTPMailer struct {
	cfg    SMTPConfig
	dialer *net.Dialer
	now    func() time.Time
}

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{
		cfg:    cfg,
		dialer: &net.Dialer{Timeout: 10 * time.Second},
		now:    time.Now,
	}
}

var _ usecase.Mailer = (*SMTPMailer)(nil)

func (m *SMTPMailer) Send(ctx context.Context, msg usecase.Email) error {
	body, err := buildMessage(m.cfg.From, msg, m.now())
	if err != nil {
		return err
	}

	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	conn, err := m.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return usecase.NewTransientError(fmt.Errorf("smtp dial: %w", err))
	}
	// net/smtp は context を見ないので deadline で打ち切る
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if m.cfg.Port == implicitTLSPort {
		tlsConn := tls.Client(conn, &tls.Config{ServerName: m.cfg.Host})
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			_ = conn.Close()
			return usecase.NewTransientError(fmt.Errorf("smtp tls: %w", err))
		}
		conn = tlsConn
	}

	c, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		_ = conn.Close()
		return classify(fmt.Errorf("smtp hello: %w", err))
	}
	defer c.Close()

	if m.cfg.Port != implicitTLSPort {
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err := c.StartTLS(&tls.Config{ServerName: m.cfg.Host}); err != nil {
				return classify(fmt.Errorf("smtp starttls: %w", err))
			}
		}
	}

	if m.cfg.Username != "" {
		if ok, _ := c.Extension("AUTH"); ok {
			auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
			if err := c.Auth(auth); err != nil {
				return classify(fmt.Errorf("smtp auth: %w", err))
			}
		}
	}

	if err := c.Mail(m.cfg.From); err != nil {
		return classify(fmt.Errorf("smtp mail from: %w", err))
	}
	if err := c.Rcpt(msg.To); err != nil {
		return classify(fmt.Errorf("smtp rcpt: %w", err))
	}

	w, err := c.Data()
	if err != nil {
		return classify(fmt.Errorf("smtp data: %w", err))
	}
	if _, err := w.Write(body); err != nil {
		return classify(fmt.Errorf("smtp write: %w", err))
	}
	if err := w.Close(); err != nil {
		return classify(fmt.Errorf("smtp data close: %w", err))
	}

	return c.Quit()
}

// 5xx は宛先不正などなので再送しない
func classify(err error) error {
	var tpErr *textproto.Error
	if errors.As(err, &tpErr) && tpErr.Code >= 500 {
		return err
	}
	return usecase.NewTransientError(err)
}

func buildMessage(from string, msg usecase.Email, now time.Time) ([]byte, error) {
	for _, v := range []string{from, msg.To, msg.Subject} {
		if strings.ContainsAny(v, "\r\n") {
			return nil, errHeaderInjection
		}
	}

	var buf bytes.Buffer
	writeHeader := func(k, v string) {
		buf.WriteString(k)
		buf.WriteString(": ")
		buf.WriteString(v)
		buf.WriteString("\r\n")
	}

	writeHeader("From", from)
	writeHeader("To", msg.To)
	writeHeader("Subject", mime.QEncoding.Encode("utf-8", msg.Subject))
	writeHeader("Date", now.Format(time.RFC1123Z))
	writeHeader("MIME-Version", "1.0")
	writeHeader("Content-Type", `text/html; charset="UTF-8"`)
	writeHeader("Content-Transfer-Encoding", "8bit")
	buf.WriteString("\r\n")
	buf.WriteString(strings.ReplaceAll(msg.HTML, "\n", "\r\n"))
	buf.WriteString("\r\n")

	return buf.Bytes(), nil
}
