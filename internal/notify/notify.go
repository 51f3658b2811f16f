// Package notify emails a summary of every completed run.
package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/mail"
	"net/smtp"
	"strings"
	"time"

	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"

	"github.com/navid-fn/fareradar/internal/models"
)

const (
	// maxListedOffers caps the offers shown in a report, cheapest first.
	maxListedOffers = 10

	// DefaultSendTimeout bounds a send whose context carries no deadline.
	DefaultSendTimeout = 30 * time.Second
)

var errNoAuth = errors.New("smtp: server doesn't support AUTH")

type Report struct {
	Run      *models.SearchRun
	Series   models.PriceSeries
	Analysis models.AnalysisRecord
}

type Notifier interface {
	Notify(ctx context.Context, report Report) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	To       string
}

// EmailNotifier sends text and HTML reports over SMTP.
type EmailNotifier struct {
	config SMTPConfig
	logger *logrus.Logger
	send   func(ctx context.Context, e *email.Email) error
	now    func() time.Time
}

func NewEmailNotifier(config SMTPConfig, logger *logrus.Logger) *EmailNotifier {
	n := &EmailNotifier{config: config, logger: logger, now: time.Now}
	n.send = n.sendSMTP
	return n
}

func (n *EmailNotifier) Notify(ctx context.Context, report Report) error {
	mail, err := n.compose(report)
	if err != nil {
		return err
	}
	if err := n.send(ctx, mail); err != nil {
		return fmt.Errorf("send report email: %w", err)
	}
	n.logger.WithFields(logrus.Fields{
		"to":     n.config.To,
		"run_id": report.Run.ID,
	}).Info("Report email sent")
	return nil
}

func (n *EmailNotifier) compose(report Report) (*email.Email, error) {
	c := report.Run.Criteria
	view := newReportView(report, n.now())

	var html bytes.Buffer
	if err := htmlTemplate.Execute(&html, view); err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}

	mail := email.NewEmail()
	mail.From = n.config.User
	mail.To = splitRecipients(n.config.To)
	mail.Subject = fmt.Sprintf("Flight Search Results: %s → %s", c.Origin, c.Destination)
	mail.Text = []byte(textBody(view))
	mail.HTML = html.Bytes()
	return mail, nil
}

// sendSMTP uses implicit TLS on port 465 and STARTTLS elsewhere, and retries
// without credentials when the server does not offer AUTH. The whole exchange
// is bounded by ctx.
func (n *EmailNotifier) sendSMTP(ctx context.Context, m *email.Email) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultSendTimeout)
		defer cancel()
	}

	auth := smtp.PlainAuth("", n.config.User, n.config.Password, n.config.Host)
	err := n.deliver(ctx, m, auth)
	if errors.Is(err, errNoAuth) {
		err = n.deliver(ctx, m, nil)
	}
	return err
}

func (n *EmailNotifier) deliver(ctx context.Context, m *email.Email, auth smtp.Auth) error {
	from, err := mail.ParseAddress(m.From)
	if err != nil {
		return fmt.Errorf("parse sender: %w", err)
	}
	raw, err := m.Bytes()
	if err != nil {
		return err
	}

	addr := net.JoinHostPort(n.config.Host, fmt.Sprint(n.config.Port))
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	deadline, _ := ctx.Deadline()
	if err := conn.SetDeadline(deadline); err != nil {
		conn.Close()
		return err
	}
	// A cancelled context unblocks any pending read or write.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	tlsConfig := &tls.Config{ServerName: n.config.Host}
	if n.config.Port == 465 {
		conn = tls.Client(conn, tlsConfig)
	}

	c, err := smtp.NewClient(conn, n.config.Host)
	if err != nil {
		conn.Close()
		return err
	}
	defer c.Close()

	if n.config.Port != 465 {
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err := c.StartTLS(tlsConfig); err != nil {
				return err
			}
		}
	}
	if auth != nil {
		if ok, _ := c.Extension("AUTH"); !ok {
			return errNoAuth
		}
		if err := c.Auth(auth); err != nil {
			return err
		}
	}

	if err := c.Mail(from.Address); err != nil {
		return err
	}
	for _, to := range m.To {
		rcpt, err := mail.ParseAddress(to)
		if err != nil {
			return fmt.Errorf("parse recipient %q: %w", to, err)
		}
		if err := c.Rcpt(rcpt.Address); err != nil {
			return err
		}
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(raw); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}

func splitRecipients(to string) []string {
	var out []string
	for _, r := range strings.Split(to, ",") {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}
