package email

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"net/smtp"
	"slices"

	"trend-brief/internal/models"
	"trend-brief/shared/config"
	"trend-brief/shared/prompt"
)

//go:embed digest_template.html
var digestTemplate string

type Sender struct {
	config *config.EmailConfig
	locale *prompt.Locale
	tmpl   *template.Template
}

// NewSender parses the digest template up front; locale drives number
// formatting and defaults to en-US in UTC.
func NewSender(cfg *config.EmailConfig, locale *prompt.Locale) (*Sender, error) {
	if locale == nil {
		locale = prompt.DefaultLocale()
	}

	s := &Sender{config: cfg, locale: locale}

	tmpl, err := template.New("digest").Funcs(template.FuncMap{
		"count": func(n int64) string { return s.locale.Integer(n) },
		"isNew": func(id string, fresh []string) bool { return slices.Contains(fresh, id) },
		"date":  func(r *models.DigestReport) string { return s.locale.Date(r.Date) },
	}).Parse(digestTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse digest template: %w", err)
	}
	s.tmpl = tmpl

	return s, nil
}

// SendDigest mails the watchlist digest. A report without briefs is not sent.
func (s *Sender) SendDigest(report *models.DigestReport) error {
	if report == nil {
		return fmt.Errorf("report cannot be nil")
	}

	if len(report.Briefs) == 0 {
		return nil // Nothing to report
	}

	subject := fmt.Sprintf("Trend Brief - %d Keywords (%s)",
		len(report.Briefs), report.Date.Format("Jan 2, 2006"))

	body, err := s.generateEmailBody(report)
	if err != nil {
		return fmt.Errorf("failed to generate email body: %w", err)
	}

	return s.SendHTML(subject, body)
}

// SendHTML sends an email with custom HTML content
func (s *Sender) SendHTML(subject, htmlBody string) error {
	return s.sendViaSMTP(subject, htmlBody)
}

func (s *Sender) sendViaSMTP(subject, body string) error {
	auth := smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.SMTPServer)

	to := []string{s.config.ToEmail}
	msg := []byte(fmt.Sprintf(`To: %s
From: %s
Subject: %s
MIME-Version: 1.0
Content-Type: text/html; charset=UTF-8

%s`, s.config.ToEmail, s.config.FromEmail, subject, body))

	addr := fmt.Sprintf("%s:%d", s.config.SMTPServer, s.config.SMTPPort)
	return smtp.SendMail(addr, auth, s.config.FromEmail, to, msg)
}

func (s *Sender) generateEmailBody(report *models.DigestReport) (string, error) {
	var buf bytes.Buffer
	if err := s.tmpl.Execute(&buf, report); err != nil {
		return "", err
	}
	return buf.String(), nil
}
