package entity

import (
	"encoding/json"
	"net/http"
	"time"
	"vatbill/lib/validate"
)

// InvoiceItem is a single billable line on an invoice.
type InvoiceItem struct {
	Description string  `json:"description" validate:"required"`
	Amount      float64 `json:"amount" validate:"required,gt=0"`
}

// Invoice is a billable document owned by exactly one user. The store
// assigns the identifier; ownership never changes after creation.
//
// Line items are persisted as a JSON string in the document (the
// platform schema has no nested arrays) and exposed to API clients as
// a structured slice. EncodeItems/DecodeItems convert between the two.
type Invoice struct {
	Id        string        `json:"id" bson:"id"`
	OwnerId   string        `json:"owner_id" bson:"owner_id"`
	Items     []InvoiceItem `json:"items" bson:"-"`
	RawItems  string        `json:"-" bson:"items"`
	Country   string        `json:"country" bson:"country"`
	Subtotal  float64       `json:"subtotal" bson:"subtotal"`
	VatRate   float64       `json:"vat_rate" bson:"vat_rate"`
	Vat       float64       `json:"vat" bson:"vat"`
	Total     float64       `json:"total" bson:"total"`
	Paid      bool          `json:"paid" bson:"paid"`
	CreatedAt time.Time     `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time     `json:"updated_at" bson:"updated_at"`
	PaidAt    *time.Time    `json:"paid_at,omitempty" bson:"paid_at,omitempty"`
}

func (i *Invoice) EncodeItems() error {
	data, err := json.Marshal(i.Items)
	if err != nil {
		return err
	}
	i.RawItems = string(data)
	return nil
}

func (i *Invoice) DecodeItems() error {
	if i.RawItems == "" {
		i.Items = nil
		return nil
	}
	return json.Unmarshal([]byte(i.RawItems), &i.Items)
}

// InvoiceDraft is the request body for invoice creation.
type InvoiceDraft struct {
	Items   []InvoiceItem `json:"items" validate:"required,min=1,dive"`
	Country string        `json:"country,omitempty" validate:"omitempty,max=64"`
}

func (d *InvoiceDraft) Bind(_ *http.Request) error {
	return validate.Struct(d)
}

// Subtotal sums the draft line item amounts.
func (d *InvoiceDraft) Subtotal() float64 {
	var sum float64
	for _, item := range d.Items {
		sum += item.Amount
	}
	return sum
}
