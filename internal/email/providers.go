package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	sendGridURL = "https://api.sendgrid.com"
	resendURL   = "https://api.resend.com"
	brevoURL    = "https://api.brevo.com"
	mailgunURL  = "https://api.mailgun.net"
)

// httpProvider holds what every REST provider shares.
type httpProvider struct {
	name    string
	baseURL string
	from    From
	client  *http.Client
}

func newHTTPProvider(name, baseURL string, from From) httpProvider {
	return httpProvider{
		name:    name,
		baseURL: baseURL,
		from:    from,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// WithBaseURL points the provider at another host (used by tests).
func (p *httpProvider) WithBaseURL(u string) { p.baseURL = strings.TrimRight(u, "/") }

func (p *httpProvider) Name() string { return p.name }

func (p *httpProvider) do(req *http.Request) error {
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", p.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &StatusError{Provider: p.name, Code: resp.StatusCode, Body: string(body)}
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}

func (p *httpProvider) postJSON(ctx context.Context, path string, payload any, header http.Header) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	for k, v := range header {
		req.Header[k] = v
	}
	req.Header.Set("Content-Type", "application/json")
	return p.do(req)
}

// SendGrid implements Sender with the v3 mail/send API.
type SendGrid struct {
	httpProvider
	apiKey string
}

func NewSendGrid(apiKey string, from From) *SendGrid {
	return &SendGrid{httpProvider: newHTTPProvider("sendgrid", sendGridURL, from), apiKey: apiKey}
}

func (s *SendGrid) Send(ctx context.Context, msg Message) error {
	if err := validate(msg); err != nil {
		return err
	}
	payload := map[string]any{
		"personalizations": []map[string]any{{"to": []map[string]string{{"email": msg.To}}}},
		"from":             map[string]string{"email": s.from.Email, "name": s.from.Name},
		"subject":          msg.Subject,
		"content":          []map[string]string{{"type": "text/plain", "value": msg.Text}},
	}
	h := http.Header{}
	h.Set("Authorization", "Bearer "+s.apiKey)
	return s.postJSON(ctx, "/v3/mail/send", payload, h)
}

// Resend implements Sender with the /emails API.
type Resend struct {
	httpProvider
	apiKey string
}

func NewResend(apiKey string, from From) *Resend {
	return &Resend{httpProvider: newHTTPProvider("resend", resendURL, from), apiKey: apiKey}
}

func (s *Resend) Send(ctx context.Context, msg Message) error {
	if err := validate(msg); err != nil {
		return err
	}
	payload := map[string]any{
		"from":    s.from.String(),
		"to":      []string{msg.To},
		"subject": msg.Subject,
		"text":    msg.Text,
	}
	h := http.Header{}
	h.Set("Authorization", "Bearer "+s.apiKey)
	return s.postJSON(ctx, "/emails", payload, h)
}

// Brevo implements Sender with the transactional smtp/email API.
type Brevo struct {
	httpProvider
	apiKey string
}

func NewBrevo(apiKey string, from From) *Brevo {
	return &Brevo{httpProvider: newHTTPProvider("brevo", brevoURL, from), apiKey: apiKey}
}

func (s *Brevo) Send(ctx context.Context, msg Message) error {
	if err := validate(msg); err != nil {
		return err
	}
	payload := map[string]any{
		"sender":      map[string]string{"email": s.from.Email, "name": s.from.Name},
		"to":          []map[string]string{{"email": msg.To}},
		"subject":     msg.Subject,
		"textContent": msg.Text,
	}
	h := http.Header{}
	h.Set("api-key", s.apiKey)
	h.Set("Accept", "application/json")
	return s.postJSON(ctx, "/v3/smtp/email", payload, h)
}

// Mailgun implements Sender with the form-encoded messages API.
type Mailgun struct {
	httpProvider
	apiKey string
	domain string
}

func NewMailgun(apiKey, domain string, from From) *Mailgun {
	return &Mailgun{httpProvider: newHTTPProvider("mailgun", mailgunURL, from), apiKey: apiKey, domain: domain}
}

func (s *Mailgun) Send(ctx context.Context, msg Message) error {
	if err := validate(msg); err != nil {
		return err
	}
	form := url.Values{}
	form.Set("from", s.from.String())
	form.Set("to", msg.To)
	form.Set("subject", msg.Subject)
	form.Set("text", msg.Text)

	endpoint := fmt.Sprintf("%s/v3/%s/messages", s.baseURL, url.PathEscape(s.domain))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.SetBasicAuth("api", s.apiKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return s.do(req)
}
