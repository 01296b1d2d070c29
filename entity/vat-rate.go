package entity

// VatRate maps an ISO alpha-2 country code to a decimal VAT rate.
// Records are maintained directly on the platform; this service only
// reads them.
type VatRate struct {
	Country string  `json:"country" bson:"country"`
	Rate    float64 `json:"rate" bson:"rate"`
}
