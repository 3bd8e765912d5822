package mail

import (
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"gamestore/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMessage_HTMLHeaders(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	raw, err := buildMessage("shop@example.com", usecase.Email{
		To:      "user@example.com",
		Subject: "Password Reset",
		HTML:    "<h1>Hi</h1>\n<p>body</p>",
	}, now)
	require.NoError(t, err)

	s := string(raw)
	assert.Contains(t, s, "From: shop@example.com\r\n")
	assert.Contains(t, s, "To: user@example.com\r\n")
	assert.Contains(t, s, "Subject: Password Reset\r\n")
	assert.Contains(t, s, "Content-Type: text/html; charset=\"UTF-8\"\r\n")
	assert.Contains(t, s, "Date: Fri, 02 Jan 2026 03:04:05 +0000\r\n")
	assert.True(t, strings.HasSuffix(s, "\r\n\r\n<h1>Hi</h1>\r\n<p>body</p>\r\n"))
}

func TestBuildMessage_RejectsHeaderInjection(t *testing.T) {
	_, err := buildMessage("shop@example.com", usecase.Email{
		To:      "user@example.com\r\nBcc: evil@example.com",
		Subject: "x",
	}, time.Now())
	assert.ErrorIs(t, err, errHeaderInjection)
}

func TestSend_ConnectionRefusedIsTransient(t *testing.T) {
	// 空いているポートを取ってすぐ閉じる
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	m := NewSMTPMailer(SMTPConfig{Host: "127.0.0.1", Port: port, From: "shop@example.com"})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err = m.Send(ctx, usecase.Email{To: "user@example.com", Subject: "s", HTML: "<p>x</p>"})
	require.Error(t, err)
	assert.True(t, usecase.IsTransient(err))
}
