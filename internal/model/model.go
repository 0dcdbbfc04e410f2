package model

import "time"

// Roles a user account can hold. Role is immutable except through the
// admin user-edit endpoint.
const (
	RoleStudent = "student"
	RoleStaff   = "staff"
	RoleAdmin   = "admin"
)

// Order statuses. Kitchen flow is strictly linear; cancelled is reachable
// only through an explicit admin override, never as a queue transition.
const (
	OrderStatusPending   = "pending"
	OrderStatusPreparing = "preparing"
	OrderStatusReady     = "ready"
	OrderStatusCompleted = "completed"
	OrderStatusCancelled = "cancelled"
)

// Wallet transaction kinds.
const (
	TransactionRecharge = "recharge"
	TransactionOrder    = "order"
)

// All currency amounts are integer cents. The JSON API converts to and
// from decimal at the handler boundary.

type User struct {
	ID            string
	Name          string
	StudentID     string
	Role          string
	PINHash       string
	QRCode        *string
	WalletBalance int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
	LastLogin     *time.Time
}

type Category struct {
	ID          string
	Name        string
	Description *string
	IsActive    bool
	CreatedAt   time.Time
}

type Item struct {
	ID           string
	CategoryID   string
	Name         string
	Description  *string
	Price        int64
	ImageURL     *string
	IsAvailable  bool
	CreatedAt    time.Time
	CategoryName *string
}

// OrderItem is a denormalized copy of a catalog item at order time.
// Catalog edits never mutate past orders.
type OrderItem struct {
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Quantity int    `json:"quantity"`
}

type Order struct {
	ID          string
	UserID      string
	Items       []OrderItem
	TotalAmount int64
	// TokenNumber is the 4-digit number shown to kitchen staff. It is
	// random and not unique across orders.
	TokenNumber int
	Status      string
	CreatedAt   time.Time

	// Populated on staff/admin listings only.
	UserName      *string
	UserStudentID *string
}

type WalletTransaction struct {
	ID           string
	UserID       string
	Amount       int64
	Kind         string
	OrderID      *string
	BalanceAfter int64
	CreatedAt    time.Time
}

type Notification struct {
	ID        string
	UserID    string
	Type      string
	Title     string
	Message   string
	Data      map[string]any
	Read      bool
	ReadAt    *time.Time
	CreatedAt time.Time
}

type ResetToken struct {
	TokenHash string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}
