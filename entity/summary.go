package entity

// Summary aggregates a user's invoices. Revenue and VAT are rounded
// once, after summation, so per-invoice rounding error does not
// compound into the aggregate.
type Summary struct {
	TotalRevenue float64 `json:"totalRevenue"`
	TotalVat     float64 `json:"totalVat"`
	Outstanding  int     `json:"outstanding"`
	Paid         int     `json:"paid"`
	Total        int     `json:"total"`
}
