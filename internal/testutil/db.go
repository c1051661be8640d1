// Package testutil provides an in-memory database and identity helpers for package tests.
package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jakecourtright/HayFlow/internal/auth"
	"github.com/jakecourtright/HayFlow/internal/database"
	"github.com/jakecourtright/HayFlow/internal/domain"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Default identities used across tests
const (
	OrgA = "org_farm_a"
	OrgB = "org_farm_b"

	AdminUser      = "user_admin"
	BookkeeperUser = "user_bookkeeper"
	DriverUser     = "user_driver"
)

// SetupTestDB opens a private in-memory SQLite database with the full schema.
// A single connection keeps the memory database alive for the test and serializes writers.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))
	return db
}

// Ctx returns a context carrying an identity with the given role in orgID
func Ctx(userID, orgID string, role domain.UserRoleType) context.Context {
	return auth.WithUserContext(context.Background(), &auth.UserContext{
		UserID:      userID,
		DisplayName: userID,
		OrgID:       orgID,
		Role:        role,
	})
}

func AdminCtx(orgID string) context.Context {
	return Ctx(AdminUser, orgID, domain.RoleAdmin)
}

func BookkeeperCtx(orgID string) context.Context {
	return Ctx(BookkeeperUser, orgID, domain.RoleBookkeeper)
}

func DriverCtx(orgID string) context.Context {
	return Ctx(DriverUser, orgID, domain.RoleDriver)
}

// NoOrgCtx carries an identity with no active organization
func NoOrgCtx() context.Context {
	return auth.WithUserContext(context.Background(), &auth.UserContext{
		UserID: AdminUser,
		Role:   domain.RoleAdmin,
	})
}

// CreateStack inserts a stack directly
func CreateStack(t *testing.T, db *gorm.DB, orgID, name, commodity, baleSize string) *domain.Stack {
	t.Helper()
	stack := &domain.Stack{
		BaseModel: domain.BaseModel{OrgID: orgID},
		Name:      name,
		Commodity: commodity,
		BaleSize:  baleSize,
		PriceUnit: domain.PriceUnitBale,
	}
	require.NoError(t, db.Create(stack).Error)
	return stack
}

// CreateLocation inserts a location directly
func CreateLocation(t *testing.T, db *gorm.DB, orgID, name string, capacity float64) *domain.Location {
	t.Helper()
	location := &domain.Location{
		BaseModel:    domain.BaseModel{OrgID: orgID},
		Name:         name,
		Capacity:     capacity,
		CapacityUnit: domain.CapacityUnitBales,
	}
	require.NoError(t, db.Create(location).Error)
	return location
}

// AddTransaction inserts a ledger entry in bales and $/ton, bypassing the service checks
func AddTransaction(t *testing.T, db *gorm.DB, orgID string, txType domain.TransactionType, stackID uuid.UUID, locationID *uuid.UUID, bales, pricePerTon float64) *domain.Transaction {
	t.Helper()
	sid := stackID
	tx := &domain.Transaction{
		BaseModel:  domain.BaseModel{OrgID: orgID},
		Type:       txType,
		StackID:    &sid,
		LocationID: locationID,
		Amount:     bales,
		Unit:       "bales",
		Price:      pricePerTon,
		UserID:     AdminUser,
	}
	require.NoError(t, db.Omit("Stack", "Location").Create(tx).Error)
	return tx
}
