package email

import (
	"bytes"
	"context"
	"html/template"
	"sync"

	"github.com/rs/zerolog/log"
)

// Sender interface for sending templated emails
type Sender interface {
	SendTemplate(to, toName, templateName, subject string, data interface{})
}

// Service handles email sending with templates. Sends are queued and
// delivered by a background worker so request handlers never block on the
// SendGrid API.
type Service struct {
	client       *SendGridClient
	templates    map[string]*template.Template
	baseTemplate *template.Template
	queue        chan *queuedEmail
	wg           sync.WaitGroup
}

type queuedEmail struct {
	To           string
	ToName       string
	Subject      string
	TemplateName string
	Data         interface{}
}

// NewService creates email service
func NewService(config SendGridConfig) *Service {
	s := &Service{
		client:    NewSendGridClient(config),
		templates: make(map[string]*template.Template),
		queue:     make(chan *queuedEmail, 100),
	}

	s.baseTemplate, _ = template.New("base").Parse(BaseTemplate)
	s.loadTemplates()

	s.wg.Add(1)
	go s.worker()

	return s
}

func (s *Service) loadTemplates() {
	templates := map[string]string{
		"welcome":           WelcomeTemplate,
		"purchase_receipt":  PurchaseReceiptTemplate,
		"low_balance":       LowBalanceTemplate,
		"generation_failed": GenerationFailedTemplate,
	}

	for name, content := range templates {
		tmpl, err := template.New(name).Parse(content)
		if err != nil {
			log.Error().Err(err).Str("template", name).Msg("Failed to parse email template")
			continue
		}
		s.templates[name] = tmpl
	}
}

// SendTemplate queues a templated email for async delivery. Drops the email
// with a warning when the queue is full rather than blocking the caller.
func (s *Service) SendTemplate(to, toName, templateName, subject string, data interface{}) {
	select {
	case s.queue <- &queuedEmail{To: to, ToName: toName, Subject: subject, TemplateName: templateName, Data: data}:
	default:
		log.Warn().Str("template", templateName).Msg("Email queue full, dropping email")
	}
}

// Close drains the queue and stops the worker.
func (s *Service) Close() {
	close(s.queue)
	s.wg.Wait()
}

func (s *Service) worker() {
	defer s.wg.Done()

	for email := range s.queue {
		if err := s.send(context.Background(), email); err != nil {
			log.Error().Err(err).
				Str("to", email.To).
				Str("template", email.TemplateName).
				Msg("Failed to send email")
		}
	}
}

func (s *Service) send(ctx context.Context, email *queuedEmail) error {
	tmpl, ok := s.templates[email.TemplateName]
	if !ok {
		log.Warn().Str("template", email.TemplateName).Msg("Template not found")
		return nil
	}

	var contentBuf bytes.Buffer
	if err := tmpl.Execute(&contentBuf, email.Data); err != nil {
		return err
	}

	var htmlBuf bytes.Buffer
	if err := s.baseTemplate.Execute(&htmlBuf, map[string]interface{}{
		"Content": template.HTML(contentBuf.String()),
	}); err != nil {
		return err
	}

	return s.client.Send(ctx, &EmailMessage{
		To:          email.To,
		ToName:      email.ToName,
		Subject:     email.Subject,
		HTMLContent: htmlBuf.String(),
	})
}

// NopSender is a Sender that does nothing, for tests and workers that run
// without email configuration.
type NopSender struct{}

func (NopSender) SendTemplate(string, string, string, string, interface{}) {}
