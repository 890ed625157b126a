package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"bibliophile/server/internal/logging"
	"bibliophile/server/internal/services"
)

const fallbackFromAddress = "noreply@example.com"

// HandleEmailDeliveryTask renders the payload's template and sends the message.
// Bad payloads and unknown templates are not retried; send failures are.
func (p *TaskProcessor) HandleEmailDeliveryTask(ctx context.Context, t *asynq.Task) error {
	var payload EmailTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal email task payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.To == "" {
		return fmt.Errorf("email task has no recipient: %w", asynq.SkipRetry)
	}

	log := logging.L().With(zap.String("to", payload.To), zap.String("template_id", payload.TemplateID))

	locale := payload.Locale
	if locale == "" {
		locale = services.DefaultLocale
	}

	tmpl, err := p.emailTemplateService.GetTemplate(ctx, payload.TemplateID, locale)
	if err != nil {
		log.Error("email template lookup failed", zap.String("locale", locale), zap.Error(err))
		return fmt.Errorf("email template not found: %w", asynq.SkipRetry)
	}

	subject, err := render("subject", tmpl.Subject, payload.Data)
	if err != nil {
		return fmt.Errorf("failed to render subject: %v: %w", err, asynq.SkipRetry)
	}
	body, err := render("body", tmpl.Body, payload.Data)
	if err != nil {
		return fmt.Errorf("failed to render body: %v: %w", err, asynq.SkipRetry)
	}

	fromAddress := p.cfg.SmtpFromAddress
	if fromAddress == "" {
		fromAddress = fallbackFromAddress
		log.Warn("SmtpFromAddress not configured, using fallback", zap.String("from", fromAddress))
	}

	rawMessage := buildMessage(fromAddress, payload.To, subject, body, time.Now())
	if err := p.emailSender.Send(ctx, []string{payload.To}, subject, rawMessage); err != nil {
		log.Warn("email sending failed, will retry", zap.Error(err))
		return err
	}

	log.Info("email task processed")
	return nil
}

func render(name, source string, data map[string]interface{}) (string, error) {
	tmpl, err := template.New(name).Parse(source)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// buildMessage assembles a plain-text RFC 5322 message. Header values have
// line breaks stripped so rendered data cannot inject headers.
func buildMessage(from, to, subject, body string, date time.Time) []byte {
	clean := strings.NewReplacer("\r", "", "\n", " ")

	var sb strings.Builder
	sb.WriteString("To: " + clean.Replace(to) + "\r\n")
	sb.WriteString("From: " + clean.Replace(from) + "\r\n")
	sb.WriteString("Subject: " + clean.Replace(subject) + "\r\n")
	sb.WriteString("Date: " + date.Format(time.RFC1123Z) + "\r\n")
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	sb.WriteString("\r\n")
	sb.WriteString(strings.ReplaceAll(strings.ReplaceAll(body, "\r\n", "\n"), "\n", "\r\n"))
	if !strings.HasSuffix(body, "\n") {
		sb.WriteString("\r\n")
	}
	return []byte(sb.String())
}
