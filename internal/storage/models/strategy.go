// internal/storage/models/strategy.go
package models

// Strategy persists one rule-engine strategy as its JSON document, with
// the slot ordering the engine's evaluation.
type Strategy struct {
	BaseModel
	Name     string `gorm:"unique;not null;type:varchar(100)"`
	Slot     int    `gorm:"index;not null"`
	Document string `gorm:"type:jsonb;not null"`
	Enabled  bool   `gorm:"not null;default:true"`
}
