package mail

import (
	"fmt"
	"html/template"
	"strings"
	"time"
)

// licenseData feeds the delivery email template. License is inserted through
// html/template so any markup-significant bytes in the opaque artifact are
// escaped before rendering.
type licenseData struct {
	BuyerName    string
	License      string
	OrderID      string
	ValidUntil   string
	SupportEmail string
}

var licenseTmpl = template.Must(template.New("license").Parse(`<html>
<head>
  <title>Your HakPak License</title>
  <style>
    body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
    .container { max-width: 600px; margin: 0 auto; padding: 20px; }
    .header { background: #2c3e50; color: white; padding: 20px; text-align: center; }
    .license-key { background: #fff; padding: 15px; border: 2px solid #3498db; border-radius: 8px; font-family: monospace; word-break: break-all; margin: 20px 0; }
    .step { margin: 10px 0; padding: 10px; background: #ecf0f1; border-radius: 4px; }
    .footer { text-align: center; color: #666; font-size: 12px; margin-top: 30px; }
  </style>
</head>
<body>
  <div class="container">
    <div class="header">
      <h1>Welcome to HakPak!</h1>
      <p>Professional Security Toolkit</p>
    </div>
    <h2>Hello {{.BuyerName}}!</h2>
    <p>Thank you for purchasing HakPak! Your professional security toolkit is ready to activate.</p>
    <h3>Quick Activation Steps:</h3>
    <div class="step"><strong>1. Download</strong> your HakPak package from your order confirmation</div>
    <div class="step"><strong>2. Extract</strong>: <code>tar -xzf hakpak-v1.0.0-*.tar.gz</code></div>
    <div class="step"><strong>3. Install</strong>: <code>cd hakpak &amp;&amp; sudo ./install.sh</code></div>
    <div class="step"><strong>4. Activate</strong>: <code>sudo ./hakpak.sh --activate YOUR_LICENSE_KEY</code></div>
    <div class="step"><strong>5. Verify</strong>: <code>sudo ./hakpak.sh --license-status</code></div>
    <h3>Your License Key:</h3>
    <div class="license-key">{{.License}}</div>
    <p><strong>IMPORTANT:</strong> Save this license key! You'll need it to activate HakPak.</p>
    <p><strong>Order Details:</strong><br>
       Order #: {{.OrderID}}<br>
       License Type: HakPak Professional<br>
       Valid Until: {{.ValidUntil}}</p>
    <div class="footer">
      <p>&copy; PhanesGuild Software LLC | Professional Security Solutions</p>
      <p>Need assistance? Reply to this email or contact {{.SupportEmail}}</p>
    </div>
  </div>
</body>
</html>
`))

// renderLicenseEmail produces the HTML delivery body.
func renderLicenseEmail(buyerName, licenseContent, orderID, supportEmail string, validUntil time.Time) (string, error) {
	var b strings.Builder
	err := licenseTmpl.Execute(&b, licenseData{
		BuyerName:    buyerName,
		License:      licenseContent,
		OrderID:      orderID,
		ValidUntil:   validUntil.Format("2006-01-02"),
		SupportEmail: supportEmail,
	})
	if err != nil {
		return "", fmt.Errorf("render license email: %w", err)
	}
	return b.String(), nil
}

// licenseSubject is the delivery email subject line.
func licenseSubject(orderID string) string {
	return fmt.Sprintf("Your HakPak License - Ready to Activate! (Order #%s)", orderID)
}
