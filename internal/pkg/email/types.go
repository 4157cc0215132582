// internal/pkg/email/types.go
package email

// EmailType represents the type of email being sent
type EmailType string

const (
	EmailTypeOrderConfirmation EmailType = "order_confirmation"
)

// Email represents an email message
type Email struct {
	To          []string  `json:"to"`
	Subject     string    `json:"subject"`
	HTMLContent string    `json:"html_content"`
	TextContent string    `json:"text_content,omitempty"`
	Type        EmailType `json:"type"`
}

// EmailTemplateData contains common data for all email templates
type EmailTemplateData struct {
	SiteName     string
	SupportEmail string
	UserName     string
	UserEmail    string
	Year         int
}

// OrderConfirmationData contains data for order confirmation email
type OrderConfirmationData struct {
	EmailTemplateData
	OrderNumber  string
	WeekOf       string
	Items        []OrderItem
	DeliveryFee  string
	OrderTotal   string
	AddressLines []string
}

// OrderItem represents an item in the order
type OrderItem struct {
	Name     string
	Quantity int
	Total    string
}
