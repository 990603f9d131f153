package alerts

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/liamashdown/insiderdetector/internal/detector"
)

// SMTPSender sends alerts via email
type SMTPSender struct {
	host        string
	port        int
	user        string
	password    string
	from        string
	to          []string
	environment string
	sendMail    func(ctx context.Context, addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPSender creates a new SMTP sender
func NewSMTPSender(host string, port int, user, password, from string, to []string, environment string) *SMTPSender {
	return &SMTPSender{
		host:        host,
		port:        port,
		user:        user,
		password:    password,
		from:        from,
		to:          to,
		environment: environment,
		sendMail:    sendMail,
	}
}

func (s *SMTPSender) Name() string { return "smtp" }

func (s *SMTPSender) Configured() bool {
	return s.host != "" && len(s.to) > 0
}

func (s *SMTPSender) Help() string {
	return "Set SMTP_HOST, SMTP_PORT, SMTP_FROM and SMTP_TO"
}

// Send sends the alert via email
func (s *SMTPSender) Send(ctx context.Context, alert *detector.Alert) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	subject := fmt.Sprintf("[%s] Suspicious trade: %s on %s (score %d)",
		alert.AlertLevel, formatUSD(alert.TradeValue), truncate(marketTitle(alert.Trade), 80), alert.Score)

	message := fmt.Sprintf("From: %s\r\n", s.from)
	message += fmt.Sprintf("To: %s\r\n", strings.Join(s.to, ", "))
	message += fmt.Sprintf("Subject: %s\r\n", subject)
	message += "Content-Type: text/plain; charset=UTF-8\r\n"
	message += "\r\n"
	message += s.buildEmailBody(alert)

	var auth smtp.Auth
	if s.user != "" {
		auth = smtp.PlainAuth("", s.user, s.password, s.host)
	}
	addr := fmt.Sprintf("%s:%d", s.host, s.port)

	if err := s.sendMail(ctx, addr, auth, s.from, s.to, []byte(message)); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}

func (s *SMTPSender) buildEmailBody(alert *detector.Alert) string {
	body := fmt.Sprintf("INSIDER DETECTOR ALERT - %s (score %d)\n", alert.AlertLevel, alert.Score)
	body += "═══════════════════════════════════════\n\n"
	body += "TRADE DETAILS\n"
	body += "─────────────────────────────────────\n"
	body += fmt.Sprintf("Market:         %s\n", marketTitle(alert.Trade))
	body += fmt.Sprintf("Side:           %s %s\n", alert.Trade.Side, alert.Trade.Outcome)
	body += fmt.Sprintf("Value:          %s\n", formatUSD(alert.TradeValue))
	body += fmt.Sprintf("Price:          %s\n", formatCents(alert.PriceInCents))
	body += fmt.Sprintf("Market URL:     %s\n\n", marketURL(alert.Trade))
	body += "SIGNALS\n"
	body += "─────────────────────────────────────\n"
	for _, sig := range alert.Signals {
		body += fmt.Sprintf("%-18s %s\n", sig.Type, sig.Severity)
	}
	body += "\nWALLET\n"
	body += "─────────────────────────────────────\n"
	body += fmt.Sprintf("Address:        %s\n", alert.Trade.ProxyWallet)
	body += fmt.Sprintf("Profile:        %s\n\n", walletURL(alert.Trade))
	if alert.Trade.TransactionHash != "" {
		body += fmt.Sprintf("Tx:             %s\n", alert.Trade.TransactionHash)
	}
	body += fmt.Sprintf("Trade time:     %s\n", alert.Timestamp)
	body += "═══════════════════════════════════════\n"
	body += fmt.Sprintf("Environment: %s\n", s.environment)
	body += fmt.Sprintf("Generated: %s\n", time.Now().UTC().Format("2006-01-02 15:04:05 UTC"))
	body += "\nNote: This system detects suspicious behavior;\n"
	body += "it does NOT prove insider trading.\n"

	return body
}

const smtpDefaultDeadline = 30 * time.Second

// sendMail is smtp.SendMail with the dial and the whole session bounded by ctx
func sendMail(ctx context.Context, addr string, a smtp.Auth, from string, to []string, msg []byte) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(smtpDefaultDeadline)
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return err
	}

	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return err
	}
	c, err := smtp.NewClient(conn, host)
	if err != nil {
		return err
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: host}); err != nil {
			return err
		}
	}
	if a != nil {
		if ok, _ := c.Extension("AUTH"); ok {
			if err := c.Auth(a); err != nil {
				return err
			}
		}
	}
	if err := c.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}
