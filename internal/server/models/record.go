package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Record kinds.
const (
	KindExpense = "expense"
	KindCredit  = "credit"
)

// Record statuses.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

var (
	Kinds       = []string{KindExpense, KindCredit}
	Statuses    = []string{StatusPending, StatusCompleted, StatusCancelled}
	Frequencies = []string{"none", "daily", "weekly", "monthly", "yearly"}
)

// Record is a single monetary entry owned by one user.
type Record struct {
	ID            string
	UserID        string
	Amount        decimal.Decimal
	Category      string
	OccurredOn    time.Time
	Tags          string
	PaymentMethod string
	Status        string
	Frequency     string
	Notes         string
	Kind          string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
