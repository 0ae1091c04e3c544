// internal/storage/models/transaction.go
package models

import (
	"github.com/shopspring/decimal"
)

// Transaction mirrors one ledger entry for durable history.
type Transaction struct {
	BaseModel
	TransactionID   string          `gorm:"unique;not null;type:varchar(36)"`
	Signature       string          `gorm:"uniqueIndex;not null;type:varchar(88)"`
	TokenAddress    string          `gorm:"index;not null;type:varchar(44)"`
	PoolID          string          `gorm:"index;type:varchar(44)"`
	StrategyName    string          `gorm:"not null;type:varchar(100)"`
	AmountSOL       decimal.Decimal `gorm:"type:decimal(20,9);not null"`
	EstimatedProfit decimal.Decimal `gorm:"type:decimal(10,4)"`
	Status          string          `gorm:"index;not null;type:varchar(20)"`
	ErrorMessage    string          `gorm:"type:text"`
}
