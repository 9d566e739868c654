package models

import (
	"time"
)

// Reservation is a seller-initiated hold over one or more lots on behalf of
// a customer. The lot set is immutable after creation; only commercial terms
// may change while pending.
type Reservation struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	GUID           string     `gorm:"column:guid;not null;index" json:"guid"`
	SellerID       uint       `gorm:"not null;index" json:"seller_id"`
	Status         string     `gorm:"default:pending;index" json:"status"`
	PaymentMethod  string     `gorm:"not null" json:"payment_method"`
	ContractNumber *string    `json:"contract_number"`
	Message        *string    `gorm:"type:text" json:"message"`
	CustomerName   string     `gorm:"not null" json:"customer_name"`
	CustomerEmail  string     `json:"customer_email"`
	CustomerPhone  string     `json:"customer_phone"`
	CustomerTaxID  string     `gorm:"column:customer_tax_id" json:"customer_tax_id"`
	SellerName     string     `json:"seller_name"`
	SellerEmail    string     `json:"seller_email"`
	SellerPhone    string     `json:"seller_phone"`
	SellerTaxID    string     `gorm:"column:seller_tax_id" json:"seller_tax_id"`
	ApprovedAt     *time.Time `gorm:"index" json:"approved_at"`
	CancelledAt    *time.Time `json:"cancelled_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`

	// Associations
	Seller User             `gorm:"foreignKey:SellerID" json:"seller,omitempty"`
	Lots   []ReservationLot `gorm:"foreignKey:ReservationID" json:"lots,omitempty"`
}

// TableName specifies the table name for Reservation
func (Reservation) TableName() string {
	return "reservations"
}

// Reservation status constants
const (
	ReservationStatusPending   = "pending"
	ReservationStatusCompleted = "completed"
	ReservationStatusCancelled = "cancelled"
)

// Payment method constants. Lump-sum methods settle in one payment, so
// first payment and installment fields do not apply to them.
const (
	PaymentMethodCash      = "cash"
	PaymentMethodTransfer  = "transfer"
	PaymentMethodCheck     = "check"
	PaymentMethodFinancing = "financing"
)

// IsLumpSum reports whether the payment method settles in a single payment.
func IsLumpSum(method string) bool {
	switch method {
	case PaymentMethodCash, PaymentMethodTransfer, PaymentMethodCheck:
		return true
	}
	return false
}

// IsValidPaymentMethod reports whether the method is one the system accepts.
func IsValidPaymentMethod(method string) bool {
	switch method {
	case PaymentMethodCash, PaymentMethodTransfer, PaymentMethodCheck, PaymentMethodFinancing:
		return true
	}
	return false
}

// MayApprove returns true if the reservation can be approved
func (r *Reservation) MayApprove() bool {
	return r.Status == ReservationStatusPending
}

// MayReject returns true if the reservation can be rejected
func (r *Reservation) MayReject() bool {
	return r.Status == ReservationStatusPending
}

// MayCancelSale returns true if the completed sale can be undone
func (r *Reservation) MayCancelSale() bool {
	return r.Status == ReservationStatusCompleted
}

// IsActive returns true while the reservation holds its lots
func (r *Reservation) IsActive() bool {
	return r.Status != ReservationStatusCancelled
}

// LotIDs returns the ids of the lots the reservation holds, in line order.
func (r *Reservation) LotIDs() []uint {
	ids := make([]uint, 0, len(r.Lots))
	for _, rl := range r.Lots {
		ids = append(ids, rl.LotID)
	}
	return ids
}

// ReservationLot carries the negotiated monetary snapshot for one lot inside
// a reservation, independent of the lot's listed base price.
type ReservationLot struct {
	ID            uint     `gorm:"primaryKey" json:"id"`
	ReservationID uint     `gorm:"not null;index" json:"reservation_id"`
	LotID         uint     `gorm:"not null;index" json:"lot_id"`
	AgreedPrice   float64  `gorm:"type:decimal(15,2);not null" json:"agreed_price"`
	FirstPayment  *float64 `gorm:"type:decimal(15,2)" json:"first_payment"`
	Installments  *int     `json:"installments"`

	// Associations
	Lot Lot `gorm:"foreignKey:LotID" json:"lot,omitempty"`
}

// TableName specifies the table name for ReservationLot
func (ReservationLot) TableName() string {
	return "reservation_lots"
}

// ReservationLotResponse is the JSON response format for a reservation line
type ReservationLotResponse struct {
	LotID        uint     `json:"lot_id"`
	LotNumber    string   `json:"lot_number"`
	LotStatus    string   `json:"lot_status"`
	BasePrice    float64  `json:"base_price"`
	AgreedPrice  float64  `json:"agreed_price"`
	FirstPayment *float64 `json:"first_payment"`
	Installments *int     `json:"installments"`
}

// ReservationResponse is the JSON response format for reservations
type ReservationResponse struct {
	ID             uint                     `json:"id"`
	GUID           string                   `json:"guid"`
	Status         string                   `json:"status"`
	PaymentMethod  string                   `json:"payment_method"`
	ContractNumber *string                  `json:"contract_number"`
	Message        *string                  `json:"message"`
	CustomerName   string                   `json:"customer_name"`
	CustomerEmail  string                   `json:"customer_email"`
	CustomerPhone  string                   `json:"customer_phone"`
	CustomerTaxID  string                   `json:"customer_tax_id"`
	SellerID       uint                     `json:"seller_id"`
	SellerName     string                   `json:"seller_name"`
	SellerEmail    string                   `json:"seller_email"`
	SellerPhone    string                   `json:"seller_phone"`
	SellerTaxID    string                   `json:"seller_tax_id"`
	Total          float64                  `json:"total"`
	Lots           []ReservationLotResponse `json:"lots"`
	ApprovedAt     *time.Time               `json:"approved_at"`
	CancelledAt    *time.Time               `json:"cancelled_at"`
	CreatedAt      time.Time                `json:"created_at"`
	UpdatedAt      time.Time                `json:"updated_at"`
}

// ToResponse converts Reservation to ReservationResponse
func (r *Reservation) ToResponse() ReservationResponse {
	resp := ReservationResponse{
		ID:             r.ID,
		GUID:           r.GUID,
		Status:         r.Status,
		PaymentMethod:  r.PaymentMethod,
		ContractNumber: r.ContractNumber,
		Message:        r.Message,
		CustomerName:   r.CustomerName,
		CustomerEmail:  r.CustomerEmail,
		CustomerPhone:  r.CustomerPhone,
		CustomerTaxID:  r.CustomerTaxID,
		SellerID:       r.SellerID,
		SellerName:     r.SellerName,
		SellerEmail:    r.SellerEmail,
		SellerPhone:    r.SellerPhone,
		SellerTaxID:    r.SellerTaxID,
		ApprovedAt:     r.ApprovedAt,
		CancelledAt:    r.CancelledAt,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}

	for _, rl := range r.Lots {
		resp.Total += rl.AgreedPrice
		resp.Lots = append(resp.Lots, ReservationLotResponse{
			LotID:        rl.LotID,
			LotNumber:    rl.Lot.Number,
			LotStatus:    rl.Lot.Status,
			BasePrice:    rl.Lot.Price,
			AgreedPrice:  rl.AgreedPrice,
			FirstPayment: rl.FirstPayment,
			Installments: rl.Installments,
		})
	}

	return resp
}

// ReservationStats holds the count of reservations by status
type ReservationStats struct {
	Total     int64 `json:"total"`
	Pending   int64 `json:"pending"`
	Completed int64 `json:"completed"`
	Cancelled int64 `json:"cancelled"`
}
