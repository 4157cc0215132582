// internal/pkg/pdf/service.go
package pdf

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/SebastiaanKlippert/go-wkhtmltopdf"

	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/config"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/pkg/money"
)

// Service renders order receipts
type Service struct {
	config *config.Config
	tmpl   *template.Template
}

// NewService creates a new PDF service
func NewService(cfg *config.Config) *Service {
	funcs := template.FuncMap{"usd": money.FormatUSD}
	return &Service{
		config: cfg,
		tmpl:   template.Must(template.New("receipt").Funcs(funcs).Parse(receiptTemplate)),
	}
}

// Receipt is everything printed on an order receipt. Amounts are cents.
type Receipt struct {
	OrderNumber   string
	OrderDate     string
	WeekOf        string
	Status        string
	PaymentStatus string
	CustomerName  string
	Email         string
	Phone         string
	AddressLines  []string
	DeliveryNotes string
	Lines         []ReceiptLine
	BoxPrice      int64
	AddonsTotal   int64
	DeliveryFee   int64
	Total         int64
	Company       CompanyInfo
}

// ReceiptLine is one printed item
type ReceiptLine struct {
	Name      string
	Kind      string
	Quantity  int
	UnitPrice int64
	Total     int64
}

// CompanyInfo represents company information
type CompanyInfo struct {
	Name    string
	Address string
	Phone   string
	Email   string
}

// Company returns the store details from config
func (s *Service) Company() CompanyInfo {
	return CompanyInfo{
		Name:    s.config.Storefront.CompanyName,
		Address: s.config.Storefront.CompanyAddress,
		Phone:   s.config.Storefront.CompanyPhone,
		Email:   s.config.Storefront.CompanyEmail,
	}
}

// RenderHTML fills the receipt template
func (s *Service) RenderHTML(data *Receipt) (string, error) {
	if data.Company.Name == "" {
		data.Company = s.Company()
	}

	var buf bytes.Buffer
	if err := s.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.String(), nil
}

// GenerateReceipt renders the receipt and converts it with wkhtmltopdf
func (s *Service) GenerateReceipt(data *Receipt) (*bytes.Buffer, error) {
	htmlContent, err := s.RenderHTML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to generate HTML: %w", err)
	}

	pdfg, err := wkhtmltopdf.NewPDFGenerator()
	if err != nil {
		return nil, fmt.Errorf("failed to create PDF generator: %w", err)
	}

	pdfg.Dpi.Set(300)
	pdfg.Orientation.Set(wkhtmltopdf.OrientationPortrait)
	pdfg.PageSize.Set(wkhtmltopdf.PageSizeLetter)

	page := wkhtmltopdf.NewPageReader(bytes.NewReader([]byte(htmlContent)))
	page.FooterRight.Set("[page]")
	page.FooterFontSize.Set(9)
	pdfg.AddPage(page)

	if err := pdfg.Create(); err != nil {
		return nil, fmt.Errorf("failed to create PDF: %w", err)
	}
	return bytes.NewBuffer(pdfg.Bytes()), nil
}

const receiptTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Receipt {{.OrderNumber}}</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 0; padding: 20px; color: #2f3a2f; }
        .header { border-bottom: 2px solid #6b8f4e; padding-bottom: 16px; margin-bottom: 24px; }
        .title { font-size: 26px; font-weight: bold; color: #4a6b35; }
        .section-title { font-size: 15px; font-weight: bold; margin: 18px 0 8px; }
        table.items { width: 100%; border-collapse: collapse; margin-bottom: 24px; }
        table.items th, table.items td { border: 1px solid #ddd; padding: 8px; text-align: left; }
        table.items th { background-color: #f3f6ef; }
        .num { text-align: right; width: 90px; }
        .totals { float: right; width: 300px; }
        .totals td { padding: 6px; border-bottom: 1px solid #eee; }
        .total-row td { font-weight: bold; font-size: 17px; border-top: 2px solid #2f3a2f; }
        .footer { clear: both; margin-top: 48px; text-align: center; color: #666; font-size: 12px; }
    </style>
</head>
<body>
    <div class="header">
        <div class="title">{{.Company.Name}}</div>
        {{if .Company.Address}}<p>{{.Company.Address}}</p>{{end}}
        <p><strong>Receipt #:</strong> {{.OrderNumber}} &middot; <strong>Date:</strong> {{.OrderDate}}</p>
        {{if .WeekOf}}<p><strong>Delivery week of:</strong> {{.WeekOf}}</p>{{end}}
        <p><strong>Status:</strong> {{.Status}} &middot; <strong>Payment:</strong> {{.PaymentStatus}}</p>
    </div>

    <div class="section-title">Deliver To</div>
    <p><strong>{{.CustomerName}}</strong></p>
    {{range .AddressLines}}<p>{{.}}</p>{{end}}
    <p>{{.Email}}{{if .Phone}} &middot; {{.Phone}}{{end}}</p>
    {{if .DeliveryNotes}}<p><em>{{.DeliveryNotes}}</em></p>{{end}}

    <div class="section-title">Items</div>
    <table class="items">
        <thead>
            <tr><th>Item</th><th>Type</th><th class="num">Qty</th><th class="num">Price</th><th class="num">Total</th></tr>
        </thead>
        <tbody>
            {{range .Lines}}
            <tr>
                <td>{{.Name}}</td>
                <td>{{.Kind}}</td>
                <td class="num">{{.Quantity}}</td>
                <td class="num">{{usd .UnitPrice}}</td>
                <td class="num">{{usd .Total}}</td>
            </tr>
            {{end}}
        </tbody>
    </table>

    <div class="totals">
        <table>
            <tr><td>Box</td><td class="num">{{usd .BoxPrice}}</td></tr>
            <tr><td>Add-ons</td><td class="num">{{usd .AddonsTotal}}</td></tr>
            <tr><td>Delivery</td><td class="num">{{usd .DeliveryFee}}</td></tr>
            <tr class="total-row"><td>Total</td><td class="num">{{usd .Total}}</td></tr>
        </table>
    </div>

    <div class="footer">
        <p>Thank you for supporting local farms!</p>
        {{if .Company.Email}}<p>Questions? Reach us at {{.Company.Email}}{{if .Company.Phone}} or {{.Company.Phone}}{{end}}</p>{{end}}
    </div>
</body>
</html>
`
