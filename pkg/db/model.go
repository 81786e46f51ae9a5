package db

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Model is the header shared by every business-owned row.
type Model struct {
	ID         snowflake.ID `gorm:"primaryKey;autoIncrement:false" json:"id"`
	BusinessID snowflake.ID `gorm:"not null;index" json:"business_id"`
	CreatedAt  time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time    `gorm:"not null" json:"updated_at"`
}

func (m *Model) Base() *Model { return m }
