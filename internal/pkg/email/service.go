// internal/pkg/email/service.go
package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/config"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/domain/order"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/pkg/money"
)

// EmailService handles all email operations
type EmailService struct {
	config    *config.Config
	log       *logrus.Logger
	templates map[EmailType]*template.Template
}

// NewEmailService creates a new email service
func NewEmailService(cfg *config.Config, logger *logrus.Logger) *EmailService {
	return &EmailService{
		config: cfg,
		log:    logger,
		templates: map[EmailType]*template.Template{
			EmailTypeOrderConfirmation: template.Must(template.New("order_confirmation").Parse(orderConfirmationTemplate)),
		},
	}
}

// SendEmail sends an email using the configured provider
func (s *EmailService) SendEmail(ctx context.Context, email *Email) error {
	switch s.config.Email.Provider {
	case "smtp":
		return s.sendSMTPEmail(email)
	case "log", "":
		s.log.WithFields(logrus.Fields{
			"to":      strings.Join(email.To, ", "),
			"subject": email.Subject,
			"type":    email.Type,
		}).Info("email not sent, log provider configured")
		return nil
	default:
		return fmt.Errorf("unsupported email provider: %s", s.config.Email.Provider)
	}
}

// SendOrderConfirmation emails the customer a summary of a paid order
func (s *EmailService) SendOrderConfirmation(ctx context.Context, o *order.Order) error {
	if o.Contact.Email == "" {
		return fmt.Errorf("order %s has no contact email", o.OrderNumber)
	}

	data := OrderConfirmationData{
		EmailTemplateData: s.baseData(o.Contact.FullName(), o.Contact.Email),
		OrderNumber:       o.OrderNumber,
		WeekOf:            o.WeekStartDate,
		DeliveryFee:       money.FormatUSD(o.DeliveryFee),
		OrderTotal:        money.FormatUSD(o.TotalAmount),
		AddressLines:      o.Delivery.Lines(),
	}
	for _, item := range o.Items {
		if item.ItemType == order.ItemTypeDelivery {
			continue
		}
		data.Items = append(data.Items, OrderItem{
			Name:     item.ProductName,
			Quantity: item.Quantity,
			Total:    money.FormatUSD(item.TotalPrice),
		})
	}

	htmlContent, err := s.renderTemplate(EmailTypeOrderConfirmation, data)
	if err != nil {
		return fmt.Errorf("failed to render order confirmation template: %w", err)
	}

	return s.SendEmail(ctx, &Email{
		To:          []string{o.Contact.Email},
		Subject:     fmt.Sprintf("Order Confirmation - %s", o.OrderNumber),
		HTMLContent: htmlContent,
		Type:        EmailTypeOrderConfirmation,
	})
}

func (s *EmailService) baseData(userName, userEmail string) EmailTemplateData {
	return EmailTemplateData{
		SiteName:     s.config.Storefront.CompanyName,
		SupportEmail: s.config.Storefront.CompanyEmail,
		UserName:     userName,
		UserEmail:    userEmail,
		Year:         time.Now().Year(),
	}
}

// renderTemplate renders an email template with data
func (s *EmailService) renderTemplate(name EmailType, data interface{}) (string, error) {
	tmpl, exists := s.templates[name]
	if !exists {
		return "", fmt.Errorf("template %s not found", name)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", name, err)
	}

	return buf.String(), nil
}

const orderConfirmationTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.SiteName}}</title>
</head>
<body style="font-family: Arial, sans-serif; margin: 0; padding: 20px; background-color: #f4f4f4;">
    <div style="max-width: 600px; margin: 0 auto; background-color: white; padding: 20px; border-radius: 8px;">
        <h1 style="color: #2f5d34;">{{.SiteName}}</h1>
        <p>Hi {{.UserName}},</p>
        <p>Thanks for your order <strong>{{.OrderNumber}}</strong>{{if .WeekOf}} for the week of {{.WeekOf}}{{end}}.</p>
        <table style="width: 100%; border-collapse: collapse;">
            {{range .Items}}
            <tr>
                <td style="padding: 4px 0;">{{.Name}} x {{.Quantity}}</td>
                <td style="padding: 4px 0; text-align: right;">{{.Total}}</td>
            </tr>
            {{end}}
            <tr>
                <td style="padding: 4px 0;">Delivery</td>
                <td style="padding: 4px 0; text-align: right;">{{.DeliveryFee}}</td>
            </tr>
            <tr>
                <td style="padding: 8px 0; font-weight: bold;">Total</td>
                <td style="padding: 8px 0; text-align: right; font-weight: bold;">{{.OrderTotal}}</td>
            </tr>
        </table>
        {{if .AddressLines}}
        <p>Delivering to:<br>{{range .AddressLines}}{{.}}<br>{{end}}</p>
        {{end}}
        <p>Questions? Write to {{.SupportEmail}}.</p>
        <hr>
        <p style="font-size: 12px; color: #666;">&copy; {{.Year}} {{.SiteName}}</p>
    </div>
</body>
</html>`
