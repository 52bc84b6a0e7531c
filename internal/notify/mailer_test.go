package notify

import (
	"context"
	"net/smtp"
	"strings"
	"testing"

	"dualtrend/internal/config"
)

type capturedMail struct {
	addr string
	from string
	to   []string
	msg  string
}

func newCapturingMailer(cfg config.NotifyConfig, sink *[]capturedMail) *Mailer {
	m := NewMailer(cfg, nil)
	m.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		*sink = append(*sink, capturedMail{addr: addr, from: from, to: to, msg: string(msg)})
		return nil
	}
	return m
}

func TestDisabledMailerSendsNothing(t *testing.T) {
	var sent []capturedMail
	m := newCapturingMailer(config.NotifyConfig{Enabled: false}, &sent)

	m.TradeOpened(context.Background(), "BTC/USDT:USDT", "LONG", 50000, 50600, 49800)
	m.RiskAlert(context.Background(), "test")

	if len(sent) != 0 {
		t.Errorf("disabled mailer sent %d mails, want 0", len(sent))
	}
}

func TestTradeClosedMessage(t *testing.T) {
	var sent []capturedMail
	m := newCapturingMailer(config.NotifyConfig{
		Enabled:  true,
		SMTPHost: "smtp.example.com",
		SMTPPort: 587,
		From:     "bot@example.com",
		To:       []string{"trader@example.com"},
	}, &sent)

	m.TradeClosed(context.Background(), "BTC/USDT:USDT", "LONG", 50600, 1.2, "TAKE_PROFIT")

	if len(sent) != 1 {
		t.Fatalf("sent %d mails, want 1", len(sent))
	}
	mail := sent[0]
	if mail.addr != "smtp.example.com:587" {
		t.Errorf("addr = %q, want smtp.example.com:587", mail.addr)
	}
	if mail.from != "bot@example.com" || len(mail.to) != 1 {
		t.Errorf("envelope = %q -> %v", mail.from, mail.to)
	}
	if !strings.Contains(mail.msg, "Subject: [dualtrend] 平仓") {
		t.Errorf("missing subject in message:\n%s", mail.msg)
	}
	if !strings.Contains(mail.msg, "TAKE_PROFIT") {
		t.Errorf("missing exit reason in message:\n%s", mail.msg)
	}
}

func TestCancelledContextSkipsSend(t *testing.T) {
	var sent []capturedMail
	m := newCapturingMailer(config.NotifyConfig{
		Enabled:  true,
		SMTPHost: "smtp.example.com",
		SMTPPort: 587,
		From:     "bot@example.com",
		To:       []string{"trader@example.com"},
	}, &sent)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m.SystemError(ctx, "should not send", nil)

	if len(sent) != 0 {
		t.Errorf("sent %d mails after cancel, want 0", len(sent))
	}
}
