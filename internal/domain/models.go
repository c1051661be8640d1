package domain

import (
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BaseModel holds the fields shared by every tenant-owned table
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	OrgID     string    `gorm:"type:varchar(100);not null;index;column:org_id"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// BeforeCreate assigns a UUID when the caller did not set one
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// PriceUnit is the unit a price is quoted per
type PriceUnit string

const (
	PriceUnitBale PriceUnit = "bale"
	PriceUnitTon  PriceUnit = "ton"
)

// CapacityUnit is the unit a location's capacity is measured in
type CapacityUnit string

const (
	CapacityUnitBales CapacityUnit = "bales"
	CapacityUnitTons  CapacityUnit = "tons"
)

// Stack is a lot of a single commodity
type Stack struct {
	BaseModel
	Name          string    `gorm:"type:varchar(200);not null"`
	Commodity     string    `gorm:"type:varchar(100);not null"`
	BaleSize      string    `gorm:"type:varchar(50);column:bale_size"`
	Quality       string    `gorm:"type:varchar(100)"`
	BasePrice     float64   `gorm:"type:double precision;not null;default:0;column:base_price"`
	WeightPerBale *float64  `gorm:"type:double precision;column:weight_per_bale"`
	PriceUnit     PriceUnit `gorm:"type:varchar(20);not null;default:'bale';column:price_unit"`
	UserID        string    `gorm:"type:varchar(100);column:user_id"`
}

func (Stack) TableName() string { return "stacks" }

// Location is a storage site such as a barn or yard
type Location struct {
	BaseModel
	Name         string       `gorm:"type:varchar(200);not null"`
	Capacity     float64      `gorm:"type:double precision;not null;default:0"`
	CapacityUnit CapacityUnit `gorm:"type:varchar(20);not null;default:'bales';column:capacity_unit"`
	UserID       string       `gorm:"type:varchar(100);column:user_id"`
}

func (Location) TableName() string { return "locations" }

// TransactionType classifies a ledger entry
type TransactionType string

const (
	TransactionTypeProduction TransactionType = "production"
	TransactionTypePurchase   TransactionType = "purchase"
	TransactionTypeSale       TransactionType = "sale"
	TransactionTypeMove       TransactionType = "move"
	TransactionTypeAdjustment TransactionType = "adjustment"
)

// IsValid reports whether t is a known transaction type
func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionTypeProduction, TransactionTypePurchase, TransactionTypeSale,
		TransactionTypeMove, TransactionTypeAdjustment:
		return true
	}
	return false
}

// Transaction is a ledger entry. Amount is always in bales and Price always in $/ton.
type Transaction struct {
	BaseModel
	Type       TransactionType `gorm:"type:varchar(20);not null;index"`
	StackID    *uuid.UUID      `gorm:"type:uuid;index;column:stack_id"`
	LocationID *uuid.UUID      `gorm:"type:uuid;index;column:location_id"`
	Amount     float64         `gorm:"type:double precision;not null"`
	Unit       string          `gorm:"type:varchar(20);not null;default:'bales'"`
	Price      float64         `gorm:"type:double precision;not null;default:0"`
	Entity     string          `gorm:"type:varchar(255)"`
	UserID     string          `gorm:"type:varchar(100);column:user_id"`
	Stack      *Stack          `gorm:"foreignKey:StackID"`
	Location   *Location       `gorm:"foreignKey:LocationID"`
}

func (Transaction) TableName() string { return "transactions" }

// TicketType distinguishes a sale from a transfer between barns
type TicketType string

const (
	TicketTypeSale       TicketType = "sale"
	TicketTypeBarnToBarn TicketType = "barn_to_barn"
)

// TicketStatus is the lifecycle state of a ticket
type TicketStatus string

const (
	TicketStatusPending  TicketStatus = "pending"
	TicketStatusApproved TicketStatus = "approved"
	TicketStatusRejected TicketStatus = "rejected"
	TicketStatusInvoiced TicketStatus = "invoiced"
)

// Ticket is a driver-submitted dispatch request awaiting approval
type Ticket struct {
	BaseModel
	Number        int          `gorm:"not null;default:0"`
	Type          TicketType   `gorm:"type:varchar(50);not null;default:'sale'"`
	StackID       *uuid.UUID   `gorm:"type:uuid;index;column:stack_id"`
	LocationID    *uuid.UUID   `gorm:"type:uuid;index;column:location_id"`
	DestinationID *uuid.UUID   `gorm:"type:uuid;column:destination_id"`
	Amount        float64      `gorm:"type:double precision;not null"`
	NetLbs        *float64     `gorm:"type:double precision;column:net_lbs"`
	Customer      string       `gorm:"type:varchar(255)"`
	Notes         string       `gorm:"type:text"`
	Status        TicketStatus `gorm:"type:varchar(20);not null;default:'pending';index"`
	InvoiceID     *uuid.UUID   `gorm:"type:uuid;index;column:invoice_id"`
	TransactionID *uuid.UUID   `gorm:"type:uuid;column:transaction_id"`
	DriverID      string       `gorm:"type:varchar(100);not null;column:driver_id"`
	Stack         *Stack       `gorm:"foreignKey:StackID"`
	Location      *Location    `gorm:"foreignKey:LocationID"`
	Destination   *Location    `gorm:"foreignKey:DestinationID"`
}

func (Ticket) TableName() string { return "tickets" }

// Label returns the human readable ticket reference, e.g. "Ticket #7"
func (t *Ticket) Label() string {
	return "Ticket #" + strconv.Itoa(t.Number)
}

// InvoiceStatus is the lifecycle state of an invoice
type InvoiceStatus string

const (
	InvoiceStatusDraft InvoiceStatus = "draft"
	InvoiceStatusSent  InvoiceStatus = "sent"
	InvoiceStatusPaid  InvoiceStatus = "paid"
)

// IsValid reports whether s is a known invoice status
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusPaid:
		return true
	}
	return false
}

// Invoice aggregates approved tickets into a billing document
type Invoice struct {
	BaseModel
	InvoiceNumber string           `gorm:"type:varchar(50);not null;column:invoice_number"`
	Customer      string           `gorm:"type:varchar(255)"`
	Status        InvoiceStatus    `gorm:"type:varchar(20);not null;default:'draft'"`
	TotalAmount   decimal.Decimal  `gorm:"type:numeric(12,2);not null;default:0;column:total_amount"`
	PricePerUnit  *decimal.Decimal `gorm:"type:numeric(12,2);column:price_per_unit"`
	PriceUnit     PriceUnit        `gorm:"type:varchar(20);not null;default:'ton';column:price_unit"`
	Notes         string           `gorm:"type:text"`
	ShareToken    string           `gorm:"type:varchar(64);uniqueIndex;column:share_token"`
	ArchivePath   string           `gorm:"type:varchar(500);column:archive_path"`
	CreatedBy     string           `gorm:"type:varchar(100);column:created_by"`
	Tickets       []Ticket         `gorm:"foreignKey:InvoiceID"`
}

func (Invoice) TableName() string { return "invoices" }

// NumberSequence is a per-org counter used for ticket and invoice numbers
type NumberSequence struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	OrgID        string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_number_sequences_org_name;column:org_id"`
	Name         string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_number_sequences_org_name"`
	LastSequence int       `gorm:"not null;default:0;column:last_sequence"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

func (NumberSequence) TableName() string { return "number_sequences" }

// BeforeCreate assigns a UUID when the caller did not set one
func (n *NumberSequence) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}

// UserPreference is a per user and org key/value setting
type UserPreference struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID          string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_user_preferences_key;column:user_id"`
	OrgID           string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_user_preferences_key;column:org_id"`
	PreferenceKey   string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_user_preferences_key;column:preference_key"`
	PreferenceValue string    `gorm:"type:text;not null;column:preference_value"`
	UpdatedAt       time.Time `gorm:"not null"`
}

func (UserPreference) TableName() string { return "user_preferences" }

// BeforeCreate assigns a UUID when the caller did not set one
func (p *UserPreference) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// AuditAction represents the type of audit action
type AuditAction string

const (
	AuditActionCreate AuditAction = "create"
	AuditActionUpdate AuditAction = "update"
	AuditActionDelete AuditAction = "delete"
)

// AuditLog records a successful mutating request
type AuditLog struct {
	ID          uuid.UUID   `gorm:"type:uuid;primaryKey"`
	OrgID       string      `gorm:"type:varchar(100);not null;index;column:org_id"`
	UserID      string      `gorm:"type:varchar(100);column:user_id"`
	UserName    string      `gorm:"type:varchar(200);column:user_name"`
	Action      AuditAction `gorm:"type:varchar(20);not null"`
	EntityType  string      `gorm:"type:varchar(50);not null;column:entity_type"`
	EntityID    *uuid.UUID  `gorm:"type:uuid;column:entity_id"`
	Method      string      `gorm:"type:varchar(10)"`
	Path        string      `gorm:"type:varchar(500)"`
	NewValues   string      `gorm:"type:text;column:new_values"`
	IPAddress   string      `gorm:"type:varchar(64);column:ip_address"`
	RequestID   string      `gorm:"type:varchar(100);column:request_id"`
	PerformedAt time.Time   `gorm:"not null;index;column:performed_at"`
}

func (AuditLog) TableName() string { return "audit_logs" }

// BeforeCreate assigns a UUID when the caller did not set one
func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// AllModels lists the gorm models in dependency order, used by AutoMigrate
func AllModels() []interface{} {
	return []interface{}{
		&Stack{},
		&Location{},
		&Transaction{},
		&Invoice{},
		&Ticket{},
		&NumberSequence{},
		&UserPreference{},
		&AuditLog{},
	}
}

// UserRoleType represents an organization role
type UserRoleType string

const (
	RoleAdmin      UserRoleType = "admin"
	RoleBookkeeper UserRoleType = "bookkeeper"
	RoleDriver     UserRoleType = "driver"
	RoleAPIService UserRoleType = "api_service"
)

// PermissionType represents a specific permission
type PermissionType string

const (
	PermissionUsersManage     PermissionType = "users:manage"
	PermissionStacksDelete    PermissionType = "stacks:delete"
	PermissionLocationsDelete PermissionType = "locations:delete"
	PermissionTicketsCreate   PermissionType = "tickets:create"
	PermissionTicketsManage   PermissionType = "tickets:manage"
	PermissionInvoicesManage  PermissionType = "invoices:manage"
	PermissionInventoryWrite  PermissionType = "inventory:write"
)

// AllPermissions returns every permission known to the system
func AllPermissions() []PermissionType {
	return []PermissionType{
		PermissionUsersManage,
		PermissionStacksDelete,
		PermissionLocationsDelete,
		PermissionTicketsCreate,
		PermissionTicketsManage,
		PermissionInvoicesManage,
		PermissionInventoryWrite,
	}
}

// NewShareToken returns 32 random bytes, hex encoded, for unauthenticated invoice links
func NewShareToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// IsShareTokenFormat reports whether s looks like a token produced by NewShareToken
func IsShareTokenFormat(s string) bool {
	if len(s) != 64 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
