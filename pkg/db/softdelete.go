package db

import (
	"time"

	"gorm.io/gorm"
)

// SoftDelete marks mutable entities that are hidden instead of removed.
type SoftDelete struct {
	IsDeleted bool       `json:"-" gorm:"not null;default:false;index"`
	DeletedAt *time.Time `json:"-"`
}

func (s *SoftDelete) MarkDeleted(at time.Time) {
	s.IsDeleted = true
	s.DeletedAt = &at
}

// NotDeleted restricts a query to live rows.
func NotDeleted(tx *gorm.DB) *gorm.DB {
	return tx.Where("is_deleted = ?", false)
}
