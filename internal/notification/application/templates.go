package application

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/wyfcoding/ecommerce/internal/notification/domain"
)

const layout = `{{define "layout"}}<!DOCTYPE html>
<html><body style="font-family: Arial, sans-serif; color: #333;">
<div style="max-width: 600px; margin: 0 auto; padding: 20px;">
{{template "content" .}}
<p style="margin-top: 32px; color: #888; font-size: 12px;">This is an automated message, please do not reply.</p>
</div></body></html>{{end}}`

const orderItemsTable = `{{define "items"}}<table style="width: 100%; border-collapse: collapse;">
<tr><th align="left">Product</th><th align="right">Qty</th><th align="right">Price</th></tr>
{{range .Order.Items}}<tr><td>{{.Name}}</td><td align="right">{{.Quantity}}</td><td align="right">${{.UnitPrice}}</td></tr>
{{end}}</table>
<p><strong>Total: ${{.Order.TotalAmount}}</strong></p>{{end}}`

var contentTemplates = map[domain.Type]string{
	domain.TypeEmailVerification: `{{define "content"}}<h2>Welcome!</h2>
<p>Please verify your email address by clicking the link below:</p>
<p><a href="{{index .Data "verifyUrl"}}">Verify Email</a></p>
<p>If you did not create an account, you can ignore this email.</p>{{end}}`,

	domain.TypePasswordReset: `{{define "content"}}<h2>Password Reset</h2>
<p>Your one-time password is:</p>
<p style="font-size: 24px; letter-spacing: 4px;"><strong>{{index .Data "otp"}}</strong></p>
<p>It expires in {{index .Data "expiresInMinutes"}} minutes.</p>{{end}}`,

	domain.TypeOrderConfirmation: `{{define "content"}}<h2>Thank you for your order!</h2>
<p>Hi {{.Name}}, we have received your payment for order #{{.Order.ID}}.</p>
{{template "items" .}}
<p>Shipping to: {{.Order.ShippingAddress}}</p>{{end}}`,

	domain.TypeOrderShipped: `{{define "content"}}<h2>Your order is on its way</h2>
<p>Hi {{.Name}}, order #{{.Order.ID}} has been shipped to:</p>
<p>{{.Order.ShippingAddress}}</p>
{{template "items" .}}{{end}}`,

	domain.TypeAdminOrderPaid: `{{define "content"}}<h2>New paid order #{{.Order.ID}}</h2>
<p>Customer ID: {{.Order.UserID}}</p>
{{template "items" .}}
<p>Shipping address: {{.Order.ShippingAddress}}</p>{{end}}`,
}

var templates = mustParseTemplates()

func mustParseTemplates() map[domain.Type]*template.Template {
	out := make(map[domain.Type]*template.Template, len(contentTemplates))
	for typ, content := range contentTemplates {
		t := template.Must(template.New(string(typ)).Parse(layout))
		template.Must(t.Parse(orderItemsTable))
		template.Must(t.Parse(content))
		out[typ] = t
	}
	return out
}

type templateData struct {
	Name  string
	Order *domain.OrderSummary
	Data  map[string]string
}

func subjectFor(task domain.Task) string {
	var orderID uint
	if task.Order != nil {
		orderID = task.Order.ID
	}
	switch task.Type {
	case domain.TypeEmailVerification:
		return "Verify your email address"
	case domain.TypePasswordReset:
		return "Password Reset OTP"
	case domain.TypeOrderConfirmation:
		return fmt.Sprintf("Order Confirmation - Order #%d", orderID)
	case domain.TypeOrderShipped:
		return fmt.Sprintf("Your Order #%d Has Been Shipped", orderID)
	case domain.TypeAdminOrderPaid:
		return fmt.Sprintf("New Paid Order #%d", orderID)
	}
	return "Notification"
}

// render 生成邮件主题与 HTML 正文
func render(task domain.Task, r domain.Recipient) (string, string, error) {
	t, ok := templates[task.Type]
	if !ok {
		return "", "", fmt.Errorf("unknown notification type: %s", task.Type)
	}
	switch task.Type {
	case domain.TypeOrderConfirmation, domain.TypeOrderShipped, domain.TypeAdminOrderPaid:
		if task.Order == nil {
			return "", "", fmt.Errorf("notification %s requires an order", task.Type)
		}
	}

	name := r.Name
	if name == "" {
		name = r.Email
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", templateData{Name: name, Order: task.Order, Data: task.Data}); err != nil {
		return "", "", fmt.Errorf("render %s: %w", task.Type, err)
	}
	return subjectFor(task), buf.String(), nil
}
