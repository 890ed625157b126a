package services

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"bibliophile/server/internal/db"
	"bibliophile/server/internal/models"
)

// DefaultLocale is used when a notification does not name one.
const DefaultLocale = "en-US"

// Default email templates used as fallback when not found in database
var defaultEmailTemplates = map[string]models.EmailTemplate{
	TemplateBookingCreated: {
		TemplateID: TemplateBookingCreated,
		Locale:     DefaultLocale,
		Subject:    "New booking for {{.book_name}}",
		Body: "{{.buyer_name}} ({{.buyer_email}}) booked \"{{.book_name}}\" for {{.price}}.\n" +
			"Phone: {{.phone}}\nMeeting location: {{.meeting_location}}\n",
	},
	TemplatePaymentConfirmed: {
		TemplateID: TemplatePaymentConfirmed,
		Locale:     DefaultLocale,
		Subject:    "Payment received for {{.book_name}}",
		Body:       "Your payment of {{.price}} for \"{{.book_name}}\" was recorded. Transaction: {{.transaction_id}}\n",
	},
	TemplateBookSold: {
		TemplateID: TemplateBookSold,
		Locale:     DefaultLocale,
		Subject:    "\"{{.book_name}}\" has been sold",
		Body:       "{{.buyer_email}} paid {{.price}} for \"{{.book_name}}\". The listing is now marked as sold.\n",
	},
}

// IEmailTemplateService defines the interface for email template operations.
type IEmailTemplateService interface {
	GetTemplate(ctx context.Context, templateID, locale string) (*models.EmailTemplate, error)
	SaveTemplate(ctx context.Context, template *models.EmailTemplate) error
	DeleteTemplate(ctx context.Context, templateID, locale string) error
}

// EmailTemplateService handles operations related to email templates
type EmailTemplateService struct {
	db *mongo.Database
}

// NewEmailTemplateService creates a new instance of EmailTemplateService
func NewEmailTemplateService(database *mongo.Database) *EmailTemplateService {
	return &EmailTemplateService{
		db: database,
	}
}

// GetTemplate retrieves an email template by ID and locale, falling back to
// the built-in template of the same ID.
func (s *EmailTemplateService) GetTemplate(ctx context.Context, templateID string, locale string) (*models.EmailTemplate, error) {
	if locale == "" {
		locale = DefaultLocale
	}
	filter := bson.M{
		"template_id": templateID,
		"locale":      locale,
	}

	var template models.EmailTemplate
	err := s.db.Collection(db.EmailTemplatesCollection).FindOne(ctx, filter).Decode(&template)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			if defaultTemplate, ok := defaultEmailTemplates[templateID]; ok {
				return &defaultTemplate, nil
			}
			return nil, fmt.Errorf("template not found: %s (locale: %s)", templateID, locale)
		}
		return nil, fmt.Errorf("error retrieving template: %w", err)
	}

	return &template, nil
}

// SaveTemplate saves an email template to the database
func (s *EmailTemplateService) SaveTemplate(ctx context.Context, template *models.EmailTemplate) error {
	if template.Locale == "" {
		template.Locale = DefaultLocale
	}
	filter := bson.M{
		"template_id": template.TemplateID,
		"locale":      template.Locale,
	}
	update := bson.M{"$set": bson.M{
		"template_id": template.TemplateID,
		"locale":      template.Locale,
		"subject":     template.Subject,
		"body":        template.Body,
	}}
	opts := options.Update().SetUpsert(true)

	if _, err := s.db.Collection(db.EmailTemplatesCollection).UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("error saving template: %w", err)
	}
	return nil
}

// DeleteTemplate deletes an email template from the database
func (s *EmailTemplateService) DeleteTemplate(ctx context.Context, templateID string, locale string) error {
	filter := bson.M{
		"template_id": templateID,
		"locale":      locale,
	}

	if _, err := s.db.Collection(db.EmailTemplatesCollection).DeleteOne(ctx, filter); err != nil {
		return fmt.Errorf("error deleting template: %w", err)
	}
	return nil
}
