package domain

import (
	"time"

	"github.com/google/uuid"
)

// Stack DTOs

type StackDTO struct {
	ID               uuid.UUID               `json:"id"`
	Name             string                  `json:"name"`
	Commodity        string                  `json:"commodity"`
	BaleSize         string                  `json:"baleSize"`
	Quality          string                  `json:"quality,omitempty"`
	BasePrice        float64                 `json:"basePrice"`
	PriceUnit        PriceUnit               `json:"priceUnit"`
	WeightPerBale    *float64                `json:"weightPerBale,omitempty"`
	ResolvedWeight   float64                 `json:"resolvedWeight"`
	PricePerTon      float64                 `json:"pricePerTon"`
	CurrentStock     float64                 `json:"currentStock"`
	CurrentStockTons float64                 `json:"currentStockTons"`
	Locations        []StackLocationStockDTO `json:"locations,omitempty"`
	CreatedAt        string                  `json:"createdAt"`
	UpdatedAt        string                  `json:"updatedAt"`
}

// StackLocationStockDTO is the quantity of one stack held at one location
type StackLocationStockDTO struct {
	LocationID   uuid.UUID `json:"locationId"`
	LocationName string    `json:"locationName"`
	Bales        float64   `json:"bales"`
	Tons         float64   `json:"tons"`
}

type CreateStackRequest struct {
	Name          string    `json:"name" validate:"required,max=200"`
	Commodity     string    `json:"commodity" validate:"required,max=100"`
	BaleSize      string    `json:"baleSize" validate:"max=50"`
	Quality       string    `json:"quality" validate:"max=100"`
	BasePrice     float64   `json:"basePrice" validate:"gte=0"`
	WeightPerBale *float64  `json:"weightPerBale" validate:"omitempty,gt=0"`
	PriceUnit     PriceUnit `json:"priceUnit" validate:"omitempty,oneof=bale ton"`
}

type UpdateStackRequest struct {
	Name          string    `json:"name" validate:"required,max=200"`
	Commodity     string    `json:"commodity" validate:"required,max=100"`
	BaleSize      string    `json:"baleSize" validate:"max=50"`
	Quality       string    `json:"quality" validate:"max=100"`
	BasePrice     float64   `json:"basePrice" validate:"gte=0"`
	WeightPerBale *float64  `json:"weightPerBale" validate:"omitempty,gt=0"`
	PriceUnit     PriceUnit `json:"priceUnit" validate:"omitempty,oneof=bale ton"`
}

// Location DTOs

type LocationDTO struct {
	ID               uuid.UUID          `json:"id"`
	Name             string             `json:"name"`
	Capacity         float64            `json:"capacity"`
	CapacityUnit     CapacityUnit       `json:"capacityUnit"`
	CurrentStock     float64            `json:"currentStock"`
	CurrentStockTons float64            `json:"currentStockTons"`
	UsagePercent     float64            `json:"usagePercent"`
	Stacks           []LocationStackDTO `json:"stacks,omitempty"`
	CreatedAt        string             `json:"createdAt"`
	UpdatedAt        string             `json:"updatedAt"`
}

// LocationStackDTO is one stack's quantity at a location
type LocationStackDTO struct {
	StackID   uuid.UUID `json:"stackId"`
	StackName string    `json:"stackName"`
	Commodity string    `json:"commodity"`
	Bales     float64   `json:"bales"`
	Tons      float64   `json:"tons"`
}

type CreateLocationRequest struct {
	Name         string       `json:"name" validate:"required,max=200"`
	Capacity     float64      `json:"capacity" validate:"gte=0"`
	CapacityUnit CapacityUnit `json:"capacityUnit" validate:"omitempty,oneof=bales tons"`
}

type UpdateLocationRequest struct {
	Name         string       `json:"name" validate:"required,max=200"`
	Capacity     float64      `json:"capacity" validate:"gte=0"`
	CapacityUnit CapacityUnit `json:"capacityUnit" validate:"omitempty,oneof=bales tons"`
}

// Transaction DTOs

type TransactionDTO struct {
	ID           uuid.UUID       `json:"id"`
	Type         TransactionType `json:"type"`
	StackID      *uuid.UUID      `json:"stackId,omitempty"`
	StackName    string          `json:"stackName,omitempty"`
	Commodity    string          `json:"commodity,omitempty"`
	LocationID   *uuid.UUID      `json:"locationId,omitempty"`
	LocationName string          `json:"locationName,omitempty"`
	Amount       float64         `json:"amount"`
	Tons         float64         `json:"tons"`
	Unit         string          `json:"unit"`
	Price        float64         `json:"price"`
	Entity       string          `json:"entity,omitempty"`
	UserID       string          `json:"userId,omitempty"`
	CreatedAt    string          `json:"createdAt"`
}

// CreateTransactionRequest carries an entry in caller units. Amount is converted to bales and
// Price to $/ton before it is stored.
type CreateTransactionRequest struct {
	Type       TransactionType `json:"type" validate:"required,oneof=production purchase sale move adjustment"`
	StackID    uuid.UUID       `json:"stackId" validate:"required"`
	LocationID *uuid.UUID      `json:"locationId"`
	Amount     float64         `json:"amount" validate:"gt=0"`
	Unit       string          `json:"unit" validate:"omitempty,oneof=bales tons"`
	Price      float64         `json:"price" validate:"gte=0"`
	PriceUnit  PriceUnit       `json:"priceUnit" validate:"omitempty,oneof=bale ton"`
	Entity     string          `json:"entity" validate:"max=255"`
}

type UpdateTransactionRequest struct {
	Type       TransactionType `json:"type" validate:"required,oneof=production purchase sale move adjustment"`
	StackID    uuid.UUID       `json:"stackId" validate:"required"`
	LocationID *uuid.UUID      `json:"locationId"`
	Amount     float64         `json:"amount" validate:"gt=0"`
	Unit       string          `json:"unit" validate:"omitempty,oneof=bales tons"`
	Price      float64         `json:"price" validate:"gte=0"`
	PriceUnit  PriceUnit       `json:"priceUnit" validate:"omitempty,oneof=bale ton"`
	Entity     string          `json:"entity" validate:"max=255"`
}

// TransactionFilters narrows a transaction listing
type TransactionFilters struct {
	Type       *TransactionType
	StackID    *uuid.UUID
	LocationID *uuid.UUID
	From       *time.Time
	To         *time.Time
}

// StockLevelDTO is the derived quantity of a stack, optionally at one location
type StockLevelDTO struct {
	StackID    uuid.UUID  `json:"stackId"`
	LocationID *uuid.UUID `json:"locationId,omitempty"`
	Bales      float64    `json:"bales"`
	Tons       float64    `json:"tons"`
	Display    string     `json:"display"`
}

// Ticket DTOs

type TicketDTO struct {
	ID              uuid.UUID    `json:"id"`
	Number          int          `json:"number"`
	Label           string       `json:"label"`
	Type            TicketType   `json:"type"`
	StackID         *uuid.UUID   `json:"stackId,omitempty"`
	StackName       string       `json:"stackName,omitempty"`
	Commodity       string       `json:"commodity,omitempty"`
	LocationID      *uuid.UUID   `json:"locationId,omitempty"`
	LocationName    string       `json:"locationName,omitempty"`
	DestinationID   *uuid.UUID   `json:"destinationId,omitempty"`
	DestinationName string       `json:"destinationName,omitempty"`
	Amount          float64      `json:"amount"`
	NetLbs          *float64     `json:"netLbs,omitempty"`
	Customer        string       `json:"customer,omitempty"`
	Notes           string       `json:"notes,omitempty"`
	Status          TicketStatus `json:"status"`
	InvoiceID       *uuid.UUID   `json:"invoiceId,omitempty"`
	TransactionID   *uuid.UUID   `json:"transactionId,omitempty"`
	DriverID        string       `json:"driverId"`
	CreatedAt       string       `json:"createdAt"`
}

type CreateTicketRequest struct {
	Type          TicketType `json:"type" validate:"omitempty,oneof=sale barn_to_barn"`
	StackID       uuid.UUID  `json:"stackId" validate:"required"`
	LocationID    *uuid.UUID `json:"locationId"`
	DestinationID *uuid.UUID `json:"destinationId"`
	Amount        float64    `json:"amount" validate:"gt=0"`
	NetLbs        *float64   `json:"netLbs" validate:"omitempty,gte=0"`
	Customer      string     `json:"customer" validate:"max=255"`
	Notes         string     `json:"notes" validate:"max=2000"`
}

// TicketFilters narrows a ticket listing
type TicketFilters struct {
	Status *TicketStatus
	Type   *TicketType
}

// DispatchQueueDTO is the bookkeeper's working view of open tickets and recent invoices
type DispatchQueueDTO struct {
	Pending        []TicketDTO  `json:"pending"`
	Approved       []TicketDTO  `json:"approved"`
	RecentInvoices []InvoiceDTO `json:"recentInvoices"`
}

// Invoice DTOs

type InvoiceDTO struct {
	ID            uuid.UUID     `json:"id"`
	InvoiceNumber string        `json:"invoiceNumber"`
	Customer      string        `json:"customer,omitempty"`
	Status        InvoiceStatus `json:"status"`
	TotalAmount   float64       `json:"totalAmount"`
	PricePerUnit  *float64      `json:"pricePerUnit,omitempty"`
	PriceUnit     PriceUnit     `json:"priceUnit"`
	Notes         string        `json:"notes,omitempty"`
	ShareToken    string        `json:"shareToken,omitempty"`
	ShareURL      string        `json:"shareUrl,omitempty"`
	ArchivePath   string        `json:"archivePath,omitempty"`
	TicketCount   int           `json:"ticketCount"`
	TotalBales    float64       `json:"totalBales"`
	TotalNetLbs   float64       `json:"totalNetLbs"`
	Tickets       []TicketDTO   `json:"tickets,omitempty"`
	CreatedBy     string        `json:"createdBy,omitempty"`
	CreatedAt     string        `json:"createdAt"`
	UpdatedAt     string        `json:"updatedAt"`
}

type CompileInvoiceRequest struct {
	TicketIDs    []uuid.UUID `json:"ticketIds" validate:"required,min=1"`
	Customer     string      `json:"customer" validate:"max=255"`
	Notes        string      `json:"notes" validate:"max=2000"`
	PricePerUnit *float64    `json:"pricePerUnit" validate:"omitempty,gte=0"`
	PriceUnit    PriceUnit   `json:"priceUnit" validate:"omitempty,oneof=bale ton"`
}

type UpdateInvoiceRequest struct {
	Customer     string    `json:"customer" validate:"max=255"`
	Notes        string    `json:"notes" validate:"max=2000"`
	PricePerUnit *float64  `json:"pricePerUnit" validate:"omitempty,gte=0"`
	PriceUnit    PriceUnit `json:"priceUnit" validate:"omitempty,oneof=bale ton"`
}

type UpdateInvoiceStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// PublicInvoiceDTO is the read-only invoice view served by share token
type PublicInvoiceDTO struct {
	InvoiceNumber string                 `json:"invoiceNumber"`
	Customer      string                 `json:"customer,omitempty"`
	Status        InvoiceStatus          `json:"status"`
	TotalAmount   float64                `json:"totalAmount"`
	PricePerUnit  *float64               `json:"pricePerUnit,omitempty"`
	PriceUnit     PriceUnit              `json:"priceUnit"`
	Notes         string                 `json:"notes,omitempty"`
	Lines         []PublicInvoiceLineDTO `json:"lines"`
	TotalBales    float64                `json:"totalBales"`
	TotalNetLbs   float64                `json:"totalNetLbs"`
	TotalTons     float64                `json:"totalTons"`
	CreatedAt     string                 `json:"createdAt"`
}

type PublicInvoiceLineDTO struct {
	Label     string   `json:"label"`
	Commodity string   `json:"commodity,omitempty"`
	Date      string   `json:"date"`
	Bales     float64  `json:"bales"`
	NetLbs    *float64 `json:"netLbs,omitempty"`
	Tons      float64  `json:"tons"`
}

// QuickSaleRequest creates a sale ticket, approves it and compiles a draft invoice in one step
type QuickSaleRequest struct {
	StackID      uuid.UUID `json:"stackId" validate:"required"`
	LocationID   uuid.UUID `json:"locationId" validate:"required"`
	Amount       float64   `json:"amount" validate:"gt=0"`
	NetLbs       *float64  `json:"netLbs" validate:"omitempty,gte=0"`
	Customer     string    `json:"customer" validate:"required,max=255"`
	Notes        string    `json:"notes" validate:"max=2000"`
	PricePerUnit *float64  `json:"pricePerUnit" validate:"omitempty,gte=0"`
	PriceUnit    PriceUnit `json:"priceUnit" validate:"omitempty,oneof=bale ton"`
}

type QuickSaleResponse struct {
	Ticket  TicketDTO  `json:"ticket"`
	Invoice InvoiceDTO `json:"invoice"`
}

// Report DTOs

type CommodityStockDTO struct {
	Commodity string  `json:"commodity"`
	Bales     float64 `json:"bales"`
	Tons      float64 `json:"tons"`
}

type ReportDTO struct {
	From             *time.Time          `json:"from,omitempty"`
	To               *time.Time          `json:"to,omitempty"`
	ProductionBales  float64             `json:"productionBales"`
	SalesBales       float64             `json:"salesBales"`
	SalesTons        float64             `json:"salesTons"`
	Revenue          float64             `json:"revenue"`
	PurchaseBales    float64             `json:"purchaseBales"`
	PurchaseTons     float64             `json:"purchaseTons"`
	Cost             float64             `json:"cost"`
	NetPosition      float64             `json:"netPosition"`
	StockByCommodity []CommodityStockDTO `json:"stockByCommodity"`
}

type DashboardDTO struct {
	TotalStockBales       float64             `json:"totalStockBales"`
	TotalStockTons        float64             `json:"totalStockTons"`
	StockByCommodity      []CommodityStockDTO `json:"stockByCommodity"`
	SalesThisMonthBales   float64             `json:"salesThisMonthBales"`
	SalesThisMonthRevenue float64             `json:"salesThisMonthRevenue"`
	BalesMovedThisMonth   float64             `json:"balesMovedThisMonth"`
	RecentActivity        []TransactionDTO    `json:"recentActivity"`
}

// DashboardLayout is the stored widget order and visibility for a user
type DashboardLayout struct {
	Order  []string `json:"order" validate:"required,dive,required"`
	Hidden []string `json:"hidden" validate:"dive,required"`
}

// Audit DTOs

type AuditLogDTO struct {
	ID          uuid.UUID   `json:"id"`
	UserID      string      `json:"userId,omitempty"`
	UserName    string      `json:"userName,omitempty"`
	Action      AuditAction `json:"action"`
	EntityType  string      `json:"entityType"`
	EntityID    *uuid.UUID  `json:"entityId,omitempty"`
	Method      string      `json:"method"`
	Path        string      `json:"path"`
	NewValues   string      `json:"newValues,omitempty"`
	IPAddress   string      `json:"ipAddress,omitempty"`
	RequestID   string      `json:"requestId,omitempty"`
	PerformedAt string      `json:"performedAt"`
}

type AuditLogFilters struct {
	UserID     string
	EntityType string
	Action     *AuditAction
	From       *time.Time
	To         *time.Time
}

// Identity

type PermissionFlagsDTO struct {
	CanDeleteStacks    bool `json:"canDeleteStacks"`
	CanDeleteLocations bool `json:"canDeleteLocations"`
	CanWriteInventory  bool `json:"canWriteInventory"`
	CanManageTickets   bool `json:"canManageTickets"`
	CanCreateTickets   bool `json:"canCreateTickets"`
	CanManageInvoices  bool `json:"canManageInvoices"`
	CanManageUsers     bool `json:"canManageUsers"`
	IsAdmin            bool `json:"isAdmin"`
	IsBookkeeper       bool `json:"isBookkeeper"`
	IsDriver           bool `json:"isDriver"`
}

type MeDTO struct {
	UserID      string             `json:"userId"`
	DisplayName string             `json:"displayName,omitempty"`
	Email       string             `json:"email,omitempty"`
	OrgID       string             `json:"orgId"`
	Role        UserRoleType       `json:"role"`
	Permissions []PermissionType   `json:"permissions"`
	Flags       PermissionFlagsDTO `json:"flags"`
}

// Pagination

type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"pageSize"`
	TotalPages int         `json:"totalPages"`
}
