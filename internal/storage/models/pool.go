// internal/storage/models/pool.go
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Pool is the last observed state of a monitored liquidity pool.
type Pool struct {
	BaseModel
	PoolID       string          `gorm:"unique;not null;type:varchar(44)"`
	Venue        string          `gorm:"index;not null;type:varchar(50)"`
	TokenA       string          `gorm:"index;not null;type:varchar(44)"`
	TokenB       string          `gorm:"index;type:varchar(44)"`
	PriceUSD     decimal.Decimal `gorm:"type:decimal(20,9)"`
	LiquidityUSD decimal.Decimal `gorm:"type:decimal(20,2)"`
	Volume24hUSD decimal.Decimal `gorm:"type:decimal(20,2)"`
	LastSeen     time.Time       `gorm:"index;not null"`
}
