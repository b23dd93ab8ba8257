// Package mailer sends transactional email over SMTP. Delivery is
// best-effort by contract: callers log failures and move on, the durable
// side effects live in the database.
package mailer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"strings"
	"sync"
	"time"

	"github.com/wneessen/go-mail"

	"qualityhair-hub/templates"
)

type DiscountCodeEmail struct {
	To                  string
	CustomerName        string
	Code                string
	AmountLabel         string
	ActivationDate      time.Time
	ExpiresAt           time.Time
	AppointmentName     string
	AppointmentTime     time.Time
	AppointmentLocation string
}

type BookingReminderEmail struct {
	To           string
	CustomerName string
	PurchasedAt  time.Time
	BookingURL   string
}

// Sender is the notification channel consumed by the services. Implementations
// must be safe for concurrent use.
type Sender interface {
	SendDiscountCode(ctx context.Context, email DiscountCodeEmail) error
	SendBookingReminder(ctx context.Context, email BookingReminderEmail) error
}

type Config struct {
	Host      string
	Port      int
	Username  string
	Password  string
	FromName  string
	FromEmail string
}

type Client struct {
	cfg Config

	templateMu sync.RWMutex
	templates  map[string]*template.Template
}

var _ Sender = (*Client)(nil)

func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, errors.New("smtp host is required")
	}
	if cfg.Port <= 0 {
		return nil, errors.New("smtp port must be positive")
	}
	if strings.TrimSpace(cfg.FromEmail) == "" {
		return nil, errors.New("from email is required")
	}

	return &Client{
		cfg:       cfg,
		templates: make(map[string]*template.Template),
	}, nil
}

func (c *Client) SendDiscountCode(ctx context.Context, email DiscountCodeEmail) error {
	if strings.TrimSpace(email.To) == "" {
		return errors.New("recipient is required")
	}

	body, err := c.render("discount_code", map[string]string{
		"CustomerName":        email.CustomerName,
		"Code":                email.Code,
		"AmountLabel":         email.AmountLabel,
		"ActivationTime":      formatEmailTime(email.ActivationDate),
		"ExpiryTime":          formatEmailTime(email.ExpiresAt),
		"AppointmentName":     email.AppointmentName,
		"AppointmentTime":     formatEmailTime(email.AppointmentTime),
		"AppointmentLocation": email.AppointmentLocation,
	})
	if err != nil {
		return err
	}

	subject := fmt.Sprintf("Your consultation is confirmed: %s discount inside", email.AmountLabel)
	return c.send(ctx, email.To, subject, body)
}

func (c *Client) SendBookingReminder(ctx context.Context, email BookingReminderEmail) error {
	if strings.TrimSpace(email.To) == "" {
		return errors.New("recipient is required")
	}

	body, err := c.render("booking_reminder", map[string]string{
		"CustomerName": email.CustomerName,
		"PurchaseDate": email.PurchasedAt.UTC().Format("2 January 2006"),
		"BookingURL":   email.BookingURL,
	})
	if err != nil {
		return err
	}

	return c.send(ctx, email.To, "Schedule your Quality Hair consultation", body)
}

func (c *Client) send(ctx context.Context, to, subject, htmlBody string) error {
	msg := mail.NewMsg()
	if err := msg.From(fmt.Sprintf("%s <%s>", c.cfg.FromName, c.cfg.FromEmail)); err != nil {
		return fmt.Errorf("set sender: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("set recipient: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, htmlBody)

	client, err := mail.NewClient(
		c.cfg.Host,
		mail.WithPort(c.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(c.cfg.Username),
		mail.WithPassword(c.cfg.Password),
		mail.WithTLSPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return fmt.Errorf("create smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send email to %s: %w", to, err)
	}
	return nil
}

func (c *Client) render(name string, data map[string]string) (string, error) {
	tpl, err := c.lookupTemplate(name)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s template: %w", name, err)
	}
	return buf.String(), nil
}

func (c *Client) lookupTemplate(name string) (*template.Template, error) {
	c.templateMu.RLock()
	tpl, ok := c.templates[name]
	c.templateMu.RUnlock()
	if ok {
		return tpl, nil
	}

	c.templateMu.Lock()
	defer c.templateMu.Unlock()

	if tpl, ok := c.templates[name]; ok {
		return tpl, nil
	}

	parsed, err := template.ParseFS(templates.EmailTemplateFS, "email/"+name+".tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse %s template: %w", name, err)
	}
	c.templates[name] = parsed
	return parsed, nil
}

func formatEmailTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.UTC().Format("2 January 2006 15:04 MST")
}
