package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/loomline/storefront-backend/pkg/enums"
)

// OrderEmail carries everything the order templates need. Amounts are in
// cents; rendering formats them.
type OrderEmail struct {
	Number     string
	Email      string
	Name       string
	TotalCents int64
	Currency   enums.Currency
	PaymentRef string
	PlacedAt   time.Time
	Items      []OrderEmailItem
}

type OrderEmailItem struct {
	Name           string
	SKU            string
	Quantity       int
	UnitPriceCents int64
	TotalCents     int64
}

var currencySymbols = map[enums.Currency]string{
	enums.CurrencyUSD: "$",
	enums.CurrencyEUR: "€",
	enums.CurrencyGBP: "£",
}

func formatCents(cents int64, currency enums.Currency) string {
	symbol, ok := currencySymbols[currency]
	if !ok {
		symbol = string(currency) + " "
	}
	return fmt.Sprintf("%s%d.%02d", symbol, cents/100, cents%100)
}

var templateFuncs = template.FuncMap{
	"money": formatCents,
}

var confirmationTmpl = template.Must(template.New("order_confirmation").Funcs(templateFuncs).Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; background-color: #faf8f5; padding: 20px;">
  <div style="max-width: 600px; margin: auto; background-color: white; padding: 24px; border-radius: 8px;">
    <h2 style="color: #2f2a25;">Thanks for your order{{if .Name}}, {{.Name}}{{end}}!</h2>
    <p>We received order <strong>{{.Number}}</strong> and are getting it ready.</p>
    <table style="width: 100%; border-collapse: collapse; margin: 20px 0;">
      <thead>
        <tr style="background-color: #f0ece6;">
          <th style="padding: 8px; text-align: left; border: 1px solid #ddd;">Fabric</th>
          <th style="padding: 8px; text-align: left; border: 1px solid #ddd;">Qty</th>
          <th style="padding: 8px; text-align: left; border: 1px solid #ddd;">Unit</th>
          <th style="padding: 8px; text-align: left; border: 1px solid #ddd;">Total</th>
        </tr>
      </thead>
      <tbody>
        {{- range .Items}}
        <tr>
          <td style="padding: 8px; border: 1px solid #ddd;">{{.Name}}</td>
          <td style="padding: 8px; border: 1px solid #ddd;">{{.Quantity}}</td>
          <td style="padding: 8px; border: 1px solid #ddd;">{{money .UnitPriceCents $.Currency}}</td>
          <td style="padding: 8px; border: 1px solid #ddd;">{{money .TotalCents $.Currency}}</td>
        </tr>
        {{- end}}
      </tbody>
      <tfoot>
        <tr>
          <td colspan="3" style="padding: 8px; text-align: right; font-weight: bold;">Total:</td>
          <td style="padding: 8px; font-weight: bold;">{{money .TotalCents .Currency}}</td>
        </tr>
      </tfoot>
    </table>
    <p style="color: #6b6257;">You'll get a receipt as soon as payment is confirmed.</p>
    <p style="margin-top: 24px; color: #6b6257;">The Loomline Fabrics team</p>
  </div>
</body>
</html>`))

var receiptTmpl = template.Must(template.New("order_receipt").Funcs(templateFuncs).Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; background-color: #faf8f5; padding: 20px;">
  <div style="max-width: 600px; margin: auto; background-color: white; padding: 24px; border-radius: 8px;">
    <h2 style="color: #2f2a25;">Payment received</h2>
    <p>Your payment for order <strong>{{.Number}}</strong> went through.</p>
    <p style="font-size: 20px; font-weight: bold;">{{money .TotalCents .Currency}}</p>
    {{- if .PaymentRef}}
    <p style="color: #6b6257;">Payment reference: {{.PaymentRef}}</p>
    {{- end}}
    <p style="color: #6b6257;">We'll let you know when your fabric ships.</p>
    <p style="margin-top: 24px; color: #6b6257;">The Loomline Fabrics team</p>
  </div>
</body>
</html>`))

func renderOrderConfirmation(data OrderEmail) (string, string, error) {
	var buf bytes.Buffer
	if err := confirmationTmpl.Execute(&buf, data); err != nil {
		return "", "", err
	}
	subject := fmt.Sprintf("Order %s confirmed", data.Number)
	return subject, buf.String(), nil
}

func renderOrderReceipt(data OrderEmail) (string, string, error) {
	var buf bytes.Buffer
	if err := receiptTmpl.Execute(&buf, data); err != nil {
		return "", "", err
	}
	subject := fmt.Sprintf("Receipt for order %s", data.Number)
	return subject, buf.String(), nil
}
