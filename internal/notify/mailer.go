package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"go.uber.org/zap"

	"dualtrend/internal/config"
)

// Mailer 通过SMTP发送交易与风控告警邮件。未启用时所有方法为空操作，
// 发送失败只告警不影响主流程。
type Mailer struct {
	cfg    config.NotifyConfig
	logger *zap.Logger
	send   sendFunc
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// NewMailer 创建邮件通知器。
func NewMailer(cfg config.NotifyConfig, logger *zap.Logger) *Mailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mailer{
		cfg:    cfg,
		logger: logger,
		send:   smtp.SendMail,
	}
}

// TradeOpened 通知一笔建仓。
func (m *Mailer) TradeOpened(ctx context.Context, symbol, direction string, price, takeProfit, stopLoss float64) {
	subject := fmt.Sprintf("[dualtrend] 建仓 %s %s @ %.2f", symbol, direction, price)
	body := fmt.Sprintf("交易对: %s\n方向: %s\n入场价: %.4f\n止盈价: %.4f\n止损价: %.4f\n时间: %s\n",
		symbol, direction, price, takeProfit, stopLoss, time.Now().UTC().Format(time.RFC3339))
	m.deliver(ctx, subject, body)
}

// TradeClosed 通知一笔平仓。
func (m *Mailer) TradeClosed(ctx context.Context, symbol, direction string, price, pnlPercent float64, reason string) {
	subject := fmt.Sprintf("[dualtrend] 平仓 %s %s @ %.2f (%+.2f%%)", symbol, direction, price, pnlPercent)
	body := fmt.Sprintf("交易对: %s\n方向: %s\n离场价: %.4f\n收益: %+.4f%%\n原因: %s\n时间: %s\n",
		symbol, direction, price, pnlPercent, reason, time.Now().UTC().Format(time.RFC3339))
	m.deliver(ctx, subject, body)
}

// RiskAlert 通知风控拦截或限制触发。
func (m *Mailer) RiskAlert(ctx context.Context, message string) {
	m.deliver(ctx, "[dualtrend] 风控告警", message)
}

// SystemError 通知系统级异常。
func (m *Mailer) SystemError(ctx context.Context, message string, err error) {
	body := message
	if err != nil {
		body = fmt.Sprintf("%s\n\n错误详情: %v", message, err)
	}
	m.deliver(ctx, "[dualtrend] 系统异常", body)
}

func (m *Mailer) deliver(ctx context.Context, subject, body string) {
	if !m.cfg.Enabled {
		return
	}
	if ctx.Err() != nil {
		return
	}

	msg := buildMessage(m.cfg.From, m.cfg.To, subject, body)
	addr := fmt.Sprintf("%s:%d", m.cfg.SMTPHost, m.cfg.SMTPPort)

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.SMTPHost)
	}

	if err := m.send(addr, auth, m.cfg.From, m.cfg.To, msg); err != nil {
		m.logger.Warn("发送通知邮件失败",
			zap.String("subject", subject),
			zap.Error(err),
		)
		return
	}

	m.logger.Debug("通知邮件已发送", zap.String("subject", subject))
}

func buildMessage(from string, to []string, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}
