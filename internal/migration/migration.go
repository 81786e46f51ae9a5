// Package migration brings the schema up to date on startup.
package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	analyticsdomain "github.com/smallbiznis/bizcore/internal/analytics/domain"
	authdomain "github.com/smallbiznis/bizcore/internal/auth/domain"
	businessdomain "github.com/smallbiznis/bizcore/internal/business/domain"
	catalogdomain "github.com/smallbiznis/bizcore/internal/catalog/domain"
	customerdomain "github.com/smallbiznis/bizcore/internal/customer/domain"
	financedomain "github.com/smallbiznis/bizcore/internal/finance/domain"
	inventorydomain "github.com/smallbiznis/bizcore/internal/inventory/domain"
	notificationdomain "github.com/smallbiznis/bizcore/internal/notification/domain"
	orderdomain "github.com/smallbiznis/bizcore/internal/order/domain"
	paymentdomain "github.com/smallbiznis/bizcore/internal/payment/domain"
	referencedomain "github.com/smallbiznis/bizcore/internal/reference/domain"
	reservationdomain "github.com/smallbiznis/bizcore/internal/reservation/domain"
	"gorm.io/gorm"
)

const migrationsDir = "sql"

//go:embed sql/*.sql
var embeddedMigrations embed.FS

// Models lists every persisted entity in dependency order.
func Models() []any {
	return []any{
		&authdomain.User{}, &authdomain.RefreshToken{}, &authdomain.PasswordResetToken{},
		&businessdomain.BusinessType{}, &businessdomain.Business{}, &businessdomain.BusinessMember{},
		&referencedomain.Sequence{},
		&customerdomain.Customer{},
		&catalogdomain.Category{}, &catalogdomain.Product{}, &catalogdomain.ProductVariant{},
		&catalogdomain.Attribute{}, &catalogdomain.AttributeValue{}, &catalogdomain.ProductAttribute{},
		&inventorydomain.Warehouse{}, &inventorydomain.InventoryItem{}, &inventorydomain.InventoryMovement{},
		&inventorydomain.StockTransfer{}, &inventorydomain.StockTransferItem{}, &inventorydomain.StockAdjustment{},
		&orderdomain.Order{}, &orderdomain.OrderItem{}, &orderdomain.OrderStatusHistory{},
		&orderdomain.OrderPayment{}, &orderdomain.OrderRefund{},
		&reservationdomain.ServiceProvider{}, &reservationdomain.ReservationService{}, &reservationdomain.Reservation{},
		&reservationdomain.ReservationStatusHistory{}, &reservationdomain.ProviderAvailability{},
		&reservationdomain.WaitingListEntry{},
		&financedomain.Account{}, &financedomain.PaymentTerm{}, &financedomain.Transaction{},
		&financedomain.TransactionEntry{}, &financedomain.Invoice{}, &financedomain.Expense{},
		&paymentdomain.Payment{}, &paymentdomain.WebhookEvent{},
		&notificationdomain.Notification{}, &notificationdomain.NotificationPreference{},
		&analyticsdomain.DailySummary{}, &analyticsdomain.ProductAnalytics{}, &analyticsdomain.CustomerAnalytics{},
		&analyticsdomain.SalesReport{}, &analyticsdomain.BusinessMetrics{}, &analyticsdomain.CategoryPerformance{},
	}
}

// AutoMigrate creates or widens every table from the model definitions.
func AutoMigrate(db *gorm.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// RunMigrations applies the embedded postgres migrations: the tenant-scoped
// unique and partial indexes struct tags cannot express.
func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// Closing the migrator would close the shared *sql.DB.

	return nil
}
