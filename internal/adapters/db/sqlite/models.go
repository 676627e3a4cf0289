package sqlite

import (
	"time"

	"gorm.io/datatypes"
)

// StateEntryModel is one persisted entity of the profile store.
type StateEntryModel struct {
	Key       string         `gorm:"column:state_key;primaryKey"`
	Value     datatypes.JSON `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (StateEntryModel) TableName() string { return "state_entries" }
