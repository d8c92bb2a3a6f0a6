// Package order parses commerce-platform order notifications and decides
// which line items require license fulfillment.
package order

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// flexString accepts JSON strings, numbers, and null. Order identifiers
// arrive as numbers from some platforms and opaque strings from others.
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*s = ""
		return nil
	}
	if data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = flexString(str)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return err
	}
	*s = flexString(num.String())
	return nil
}

// notification mirrors the inbound webhook payload shape.
type notification struct {
	ID          flexString `json:"id"`
	OrderNumber flexString `json:"order_number"`
	Email       string     `json:"email"`
	Customer    customer   `json:"customer"`
	LineItems   []LineItem `json:"line_items"`
}

type customer struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Name      string `json:"name"`
	Email     string `json:"email"`
}

// LineItem is one purchased product entry within an order.
type LineItem struct {
	Name         string `json:"name"`
	Title        string `json:"title"`
	ProductTitle string `json:"product_title"`
}

// Matches reports whether the line item refers to the target product.
// Case-insensitive substring match against name, title and product_title;
// a hit in any field counts. Deliberately permissive: a missed delivery
// costs more than an occasional false positive.
func (li LineItem) Matches(keyword string) bool {
	k := strings.ToLower(keyword)
	return strings.Contains(strings.ToLower(li.Name), k) ||
		strings.Contains(strings.ToLower(li.Title), k) ||
		strings.Contains(strings.ToLower(li.ProductTitle), k)
}

// Order is the classified view of one notification. Constructed once per
// notification and discarded after processing.
type Order struct {
	// ID is the order identifier, "unknown" if the payload carries none.
	ID string

	// Email is the buyer address; empty when no fallback location had one.
	Email string

	// BuyerName is the display name, falling back to Email.
	BuyerName string

	// Items is the full ordered line-item sequence as received.
	Items []LineItem
}

// Parse decodes a raw notification payload into an Order, applying the
// extraction fallbacks for email, display name and order identifier.
func Parse(payload []byte) (*Order, error) {
	var n notification
	if err := json.Unmarshal(payload, &n); err != nil {
		return nil, fmt.Errorf("decode order payload: %w", err)
	}

	email := n.Email
	if email == "" {
		email = n.Customer.Email
	}

	name := strings.TrimSpace(strings.TrimSpace(n.Customer.FirstName) + " " + strings.TrimSpace(n.Customer.LastName))
	if name == "" {
		name = n.Customer.Name
	}
	if name == "" {
		name = email
	}

	id := string(n.ID)
	if id == "" {
		id = string(n.OrderNumber)
	}
	if id == "" {
		id = "unknown"
	}

	return &Order{
		ID:        id,
		Email:     email,
		BuyerName: name,
		Items:     n.LineItems,
	}, nil
}

// MatchingItems returns the line items that require fulfillment, in payload
// order.
func (o *Order) MatchingItems(keyword string) []LineItem {
	var matched []LineItem
	for _, li := range o.Items {
		if li.Matches(keyword) {
			matched = append(matched, li)
		}
	}
	return matched
}
