package webhook

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Payload shapes are explicit, validated structs. Payloads that fail
// structural validation are logged and acknowledged without being trusted.

// OrderPaid is the subset of an orders/paid event the gateway acts on.
type OrderPaid struct {
	ID          int64          `json:"id"`
	OrderNumber int64          `json:"order_number"`
	Customer    *OrderCustomer `json:"customer"`
	LineItems   []LineItem     `json:"line_items"`
}

// OrderCustomer identifies the purchasing customer.
type OrderCustomer struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

// LineItem is a purchased product line.
type LineItem struct {
	Title     string `json:"title"`
	SKU       string `json:"sku"`
	Quantity  int    `json:"quantity"`
	ProductID int64  `json:"product_id"`
}

// ParseOrderPaid decodes and structurally validates an orders/paid body.
func ParseOrderPaid(raw []byte) (*OrderPaid, error) {
	var order OrderPaid
	if err := json.Unmarshal(raw, &order); err != nil {
		return nil, fmt.Errorf("decode order payload: %w", err)
	}
	if err := order.Validate(); err != nil {
		return nil, err
	}
	return &order, nil
}

// Validate checks the fields every order event must carry.
func (o *OrderPaid) Validate() error {
	if o.LineItems == nil {
		return fmt.Errorf("order payload missing line_items")
	}
	return nil
}

// MembershipItem scans line items for the membership-product marker,
// matched case-insensitively against title and SKU. Most orders carry no
// membership line; a miss is the normal case, not an error.
func (o *OrderPaid) MembershipItem(marker string) (*LineItem, bool) {
	needle := strings.ToLower(strings.TrimSpace(marker))
	if needle == "" {
		return nil, false
	}
	for i := range o.LineItems {
		item := &o.LineItems[i]
		if strings.Contains(strings.ToLower(item.Title), needle) ||
			strings.Contains(strings.ToLower(item.SKU), needle) {
			return item, true
		}
	}
	return nil, false
}

// MembershipMetafieldNamespace scopes the metafields the gateway owns.
const MembershipMetafieldNamespace = "membership"

// CustomerUpdate is the subset of a customers/update event the gateway
// acts on.
type CustomerUpdate struct {
	ID         int64       `json:"id"`
	Email      string      `json:"email"`
	Metafields []Metafield `json:"metafields"`
}

// Metafield is a namespaced key/value attached to the customer.
type Metafield struct {
	Namespace string `json:"namespace"`
	Key       string `json:"key"`
	Value     string `json:"value"`
}

// ParseCustomerUpdate decodes and structurally validates a
// customers/update body.
func ParseCustomerUpdate(raw []byte) (*CustomerUpdate, error) {
	var update CustomerUpdate
	if err := json.Unmarshal(raw, &update); err != nil {
		return nil, fmt.Errorf("decode customer payload: %w", err)
	}
	if update.ID == 0 {
		return nil, fmt.Errorf("customer payload missing id")
	}
	return &update, nil
}

// MembershipMetafields returns the membership-namespaced fields as a map,
// empty when the update touches nothing the gateway owns.
func (c *CustomerUpdate) MembershipMetafields() map[string]string {
	fields := make(map[string]string)
	for _, field := range c.Metafields {
		if strings.EqualFold(field.Namespace, MembershipMetafieldNamespace) && field.Key != "" {
			fields[strings.ToLower(field.Key)] = field.Value
		}
	}
	return fields
}
