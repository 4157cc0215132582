package email

import (
	"context"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/domain/order"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/testutil"
)

func paidOrder() *order.Order {
	return &order.Order{
		OrderNumber:   "FB-1001",
		WeekStartDate: "2024-01-15",
		Contact:       order.Contact{FirstName: "Sam", LastName: "Rivera", Email: "sam@example.com"},
		Delivery:      order.Address{AddressLine1: "12 Valencia St", City: "San Francisco", State: "CA", Zip: "94110"},
		DeliveryFee:   500,
		TotalAmount:   6750,
		Items: []order.OrderItem{
			{ProductName: "Medium Box", ItemType: order.ItemTypeBox, Quantity: 1, TotalPrice: 5000},
			{ProductName: "Strawberry Jam", ItemType: order.ItemTypeAddon, Quantity: 1, TotalPrice: 1250},
			{ProductName: "Delivery", ItemType: order.ItemTypeDelivery, Quantity: 1, TotalPrice: 500},
		},
	}
}

func TestSendOrderConfirmation_LogProvider(t *testing.T) {
	logger, hook := test.NewNullLogger()
	svc := NewEmailService(testutil.Config(), logger)

	require.NoError(t, svc.SendOrderConfirmation(context.Background(), paidOrder()))

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, "sam@example.com", entry.Data["to"])
	assert.Equal(t, "Order Confirmation - FB-1001", entry.Data["subject"])
}

func TestSendOrderConfirmation_RequiresEmail(t *testing.T) {
	svc := NewEmailService(testutil.Config(), logrus.New())
	o := paidOrder()
	o.Contact.Email = ""

	assert.Error(t, svc.SendOrderConfirmation(context.Background(), o))
}

func TestRenderOrderConfirmation(t *testing.T) {
	svc := NewEmailService(testutil.Config(), logrus.New())
	o := paidOrder()

	html, err := svc.renderTemplate(EmailTypeOrderConfirmation, OrderConfirmationData{
		EmailTemplateData: svc.baseData(o.Contact.FullName(), o.Contact.Email),
		OrderNumber:       o.OrderNumber,
		Items:             []OrderItem{{Name: "Strawberry Jam", Quantity: 1, Total: "$12.50"}},
		DeliveryFee:       "$5.00",
		OrderTotal:        "$67.50",
		AddressLines:      o.Delivery.Lines(),
	})
	require.NoError(t, err)
	assert.Contains(t, html, "Hi Sam Rivera")
	assert.Contains(t, html, "Strawberry Jam x 1")
	assert.Contains(t, html, "$67.50")
	assert.Contains(t, html, "San Francisco, CA 94110")
}

func TestSendEmail_UnknownProvider(t *testing.T) {
	cfg := testutil.Config()
	cfg.Email.Provider = "pigeon"
	svc := NewEmailService(cfg, logrus.New())

	err := svc.SendEmail(context.Background(), &Email{To: []string{"a@b.co"}})
	assert.ErrorContains(t, err, "unsupported email provider")
}

func TestBuildMessage(t *testing.T) {
	msg := string(buildMessage("Farm Box <orders@test.local>", &Email{
		To:          []string{"a@b.co", "c@d.co"},
		Subject:     "Hello",
		HTMLContent: "<p>hi</p>",
	}))

	assert.True(t, strings.HasPrefix(msg, "From: Farm Box <orders@test.local>\r\nTo: a@b.co, c@d.co\r\nSubject: Hello\r\n"))
	assert.True(t, strings.HasSuffix(msg, "\r\n\r\n<p>hi</p>"))
}

func TestSMTPRequiresHost(t *testing.T) {
	cfg := testutil.Config()
	cfg.Email.Provider = "smtp"
	svc := NewEmailService(cfg, logrus.New())

	err := svc.SendEmail(context.Background(), &Email{To: []string{"a@b.co"}})
	assert.ErrorContains(t, err, "SMTP configuration incomplete")
}
