package reports

import (
	"time"

	"github.com/google/uuid"
)

// Request bounds the reporting window. Zero values default to the last 30 days.
type Request struct {
	Start time.Time
	End   time.Time
}

// LabelCount is a grouped count such as subscriptions per plan.
type LabelCount struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

// RevenuePoint is approved revenue for one UTC day and currency.
type RevenuePoint struct {
	Date     string `json:"date"`
	Currency string `json:"currency"`
	Amount   string `json:"amount"`
}

// CurrencyTotal sums approved payments in one currency.
type CurrencyTotal struct {
	Currency string `json:"currency"`
	Amount   string `json:"amount"`
	Payments int64  `json:"payments"`
}

// ContentViews ranks content by lifetime views.
type ContentViews struct {
	ID    uuid.UUID `json:"id"`
	Title string    `json:"title"`
	Views int64     `json:"views"`
}

// Response is the admin dashboard payload.
type Response struct {
	Start               time.Time       `json:"start"`
	End                 time.Time       `json:"end"`
	TotalUsers          int64           `json:"totalUsers"`
	NewUsers            int64           `json:"newUsers"`
	ActiveSubscriptions int64           `json:"activeSubscriptions"`
	ActiveByPlan        []LabelCount    `json:"activeByPlan"`
	ActiveByBilling     []LabelCount    `json:"activeByBilling"`
	PaymentsByStatus    []LabelCount    `json:"paymentsByStatus"`
	Revenue             []CurrencyTotal `json:"revenue"`
	RevenueSeries       []RevenuePoint  `json:"revenueSeries"`
	TopContent          []ContentViews  `json:"topContent"`
}
