package domain

// StatusBreakdown counts a user's invoices per lifecycle status.
type StatusBreakdown struct {
	Draft   int64 `json:"draft"`
	Sent    int64 `json:"sent"`
	Paid    int64 `json:"paid"`
	Overdue int64 `json:"overdue"`
}

// StatsResponse is the API response for the dashboard summary.
type StatsResponse struct {
	TotalInvoices int64           `json:"total_invoices"`
	TotalBilled   float64         `json:"total_billed"`
	TotalPaid     float64         `json:"total_paid"`
	Outstanding   float64         `json:"outstanding"`
	Statuses      StatusBreakdown `json:"statuses"`
}
