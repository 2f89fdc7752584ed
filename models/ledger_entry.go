package models

import "time"

// Ledger categories
const (
	LedgerCategoryTask   = "task"
	LedgerCategoryFine   = "fine"
	LedgerCategoryEvent  = "event"
	LedgerCategoryManual = "manual"
)

// LedgerEntry is an immutable record of one point transaction. Amount is a
// non-negative magnitude; the signed effect is -Amount when IsDebit.
type LedgerEntry struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Amount    int       `gorm:"not null" json:"amount"`
	IsDebit   bool      `gorm:"not null;default:false" json:"is_debit"`
	Reason    string    `gorm:"type:varchar(255);not null" json:"reason"`
	Category  string    `gorm:"type:enum('task','fine','event','manual');not null;index" json:"category"`
	OrderID   string    `gorm:"type:varchar(64);not null;uniqueIndex" json:"order_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (LedgerEntry) TableName() string {
	return "ledger_entries"
}

// Signed returns the effective signed amount of the entry.
func (e *LedgerEntry) Signed() int {
	if e.IsDebit {
		return -e.Amount
	}
	return e.Amount
}
