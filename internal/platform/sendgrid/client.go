package sendgrid

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	sg "github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/yungbote/scripture-study-backend/internal/platform/logger"
)

const (
	defaultHost = "https://api.sendgrid.com"
	sendPath    = "/v3/mail/send"
)

type Client interface {
	Send(ctx context.Context, req SendEmailRequest) (*SendEmailResult, error)
}

type Config struct {
	APIKey    string
	BaseURL   string
	FromEmail string
	FromName  string
	// MaxRetries applies to 429 and 5xx responses only.
	MaxRetries int
}

type EmailAddress struct {
	Email string
	Name  string
}

type SendEmailRequest struct {
	To      []EmailAddress
	Subject string
	Text    string
	HTML    string
}

type SendEmailResult struct {
	StatusCode int
	MessageID  string
}

type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > 2000 {
		body = body[:2000] + "..."
	}
	return fmt.Sprintf("sendgrid http %d: %s", e.StatusCode, body)
}

// New returns a SendGrid-backed client, or a client that only logs the message
// when no API key is configured.
func New(log *logger.Logger, cfg Config) Client {
	clientLog := log.With("client", "SendGridClient")
	if strings.TrimSpace(cfg.APIKey) == "" {
		clientLog.Warn("SENDGRID_API_KEY unset; outgoing mail will only be logged")
		return &logOnlyClient{log: clientLog}
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = defaultHost
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	return &client{log: clientLog, cfg: cfg}
}

type client struct {
	log *logger.Logger
	cfg Config
}

func (c *client) Send(ctx context.Context, req SendEmailRequest) (*SendEmailResult, error) {
	msg, err := c.build(req)
	if err != nil {
		return nil, err
	}

	backoff := 500 * time.Millisecond
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		request := sg.GetRequest(c.cfg.APIKey, sendPath, c.cfg.BaseURL)
		request.Method = http.MethodPost
		request.Body = sgmail.GetRequestBody(msg)

		res, err := sg.API(request)
		if err == nil && res.StatusCode < http.StatusBadRequest {
			out := &SendEmailResult{StatusCode: res.StatusCode}
			if ids := res.Headers["X-Message-Id"]; len(ids) > 0 {
				out.MessageID = ids[0]
			}
			return out, nil
		}
		if err == nil {
			err = &HTTPError{StatusCode: res.StatusCode, Body: res.Body}
		}
		if !retryable(err) || attempt >= c.cfg.MaxRetries {
			return nil, err
		}
		c.log.Warn("Sendgrid request retrying", "attempt", attempt+1, "sleep", backoff.String(), "error", err.Error())
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}

func (c *client) build(req SendEmailRequest) (*sgmail.SGMailV3, error) {
	if len(req.To) == 0 {
		return nil, fmt.Errorf("sendgrid: To required")
	}
	if strings.TrimSpace(req.Subject) == "" {
		return nil, fmt.Errorf("sendgrid: Subject required")
	}
	if strings.TrimSpace(req.Text) == "" && strings.TrimSpace(req.HTML) == "" {
		return nil, fmt.Errorf("sendgrid: Text or HTML content required")
	}
	if strings.TrimSpace(c.cfg.FromEmail) == "" {
		return nil, fmt.Errorf("sendgrid: MAIL_FROM required")
	}

	p := sgmail.NewPersonalization()
	p.Subject = strings.TrimSpace(req.Subject)
	for _, to := range req.To {
		p.AddTos(sgmail.NewEmail(to.Name, to.Email))
	}

	m := sgmail.NewV3Mail()
	m.SetFrom(sgmail.NewEmail(c.cfg.FromName, c.cfg.FromEmail))
	m.AddPersonalizations(p)
	if t := strings.TrimSpace(req.Text); t != "" {
		m.AddContent(sgmail.NewContent("text/plain", t))
	}
	if h := strings.TrimSpace(req.HTML); h != "" {
		m.AddContent(sgmail.NewContent("text/html", h))
	}
	return m, nil
}

func retryable(err error) bool {
	he, ok := err.(*HTTPError)
	if !ok {
		return true
	}
	return he.StatusCode == http.StatusTooManyRequests || he.StatusCode >= 500
}

type logOnlyClient struct {
	log *logger.Logger
}

func (c *logOnlyClient) Send(ctx context.Context, req SendEmailRequest) (*SendEmailResult, error) {
	recipients := make([]string, 0, len(req.To))
	for _, to := range req.To {
		recipients = append(recipients, to.Email)
	}
	c.log.Info("Mail not sent (no provider configured)",
		"to_count", len(recipients),
		"subject", req.Subject,
		"body", req.Text,
	)
	return &SendEmailResult{StatusCode: http.StatusAccepted}, nil
}
