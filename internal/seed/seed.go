// Package seed creates the rows a fresh install needs before anyone can sign in.
package seed

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	authdomain "github.com/smallbiznis/bizcore/internal/auth/domain"
	"github.com/smallbiznis/bizcore/internal/auth/password"
	businessdomain "github.com/smallbiznis/bizcore/internal/business/domain"
	"gorm.io/gorm"
)

type businessType struct {
	name         string
	icon         string
	inventory    bool
	reservations bool
	services     bool
	variants     bool
}

var defaultTypes = []businessType{
	{name: "Retail Store", icon: "store", inventory: true, variants: true},
	{name: "Restaurant", icon: "utensils", inventory: true, reservations: true},
	{name: "Beauty Salon", icon: "scissors", reservations: true, services: true},
	{name: "Medical Clinic", icon: "stethoscope", reservations: true, services: true},
	{name: "Optical Shop", icon: "glasses", inventory: true, variants: true, reservations: true},
	{name: "Workshop", icon: "wrench", inventory: true, services: true},
}

// EnsureBusinessTypes inserts the default verticals that are missing, matched by slug.
func EnsureBusinessTypes(ctx context.Context, db *gorm.DB, node *snowflake.Node) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		for _, t := range defaultTypes {
			s := slug.Make(t.name)
			var count int64
			if err := tx.Model(&businessdomain.BusinessType{}).Where("slug = ?", s).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				continue
			}
			row := businessdomain.BusinessType{
				ID:              node.Generate(),
				Name:            t.name,
				Slug:            s,
				Icon:            t.icon,
				HasInventory:    t.inventory,
				HasReservations: t.reservations,
				HasServices:     t.services,
				HasVariants:     t.variants,
				IsActive:        true,
				CreatedAt:       now,
				UpdatedAt:       now,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// EnsureStaffAdmin creates a staff account for email, or promotes the existing one.
// The password is only used when the account is created.
func EnsureStaffAdmin(ctx context.Context, db *gorm.DB, node *snowflake.Node, email, rawPassword string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil
	}
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user authdomain.User
		err := tx.Where("email = ?", email).Take(&user).Error
		if err == nil {
			if user.IsStaff && user.IsActive {
				return nil
			}
			return tx.Model(&user).Updates(map[string]any{
				"is_staff":   true,
				"is_active":  true,
				"updated_at": time.Now().UTC(),
			}).Error
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if len(rawPassword) < 8 {
			return errors.New("bootstrap admin password must have at least 8 characters")
		}
		hashed, err := password.Hash(rawPassword)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		user = authdomain.User{
			ID:            node.Generate(),
			Email:         email,
			PasswordHash:  hashed,
			FirstName:     "Admin",
			UserType:      authdomain.UserTypeAdmin,
			IsStaff:       true,
			IsActive:      true,
			EmailVerified: true,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		return tx.Create(&user).Error
	})
}
