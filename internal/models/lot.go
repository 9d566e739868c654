package models

import (
	"time"
)

// Lot represents a sellable parcel within a map. It is the unit of
// allocation: at most one active reservation may hold it at a time.
type Lot struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	MapID         uint      `gorm:"not null;index;uniqueIndex:idx_lots_map_number" json:"map_id"`
	BlockID       *uint     `gorm:"index" json:"block_id"`
	Number        string    `gorm:"not null;uniqueIndex:idx_lots_map_number" json:"number"`
	Status        string    `gorm:"default:available;index" json:"status"`
	SizeM2        float64   `gorm:"type:decimal(10,2);not null" json:"size_m2"`
	Price         float64   `gorm:"type:decimal(15,2);not null" json:"price"`
	Description   *string   `gorm:"type:text" json:"description"`
	Features      *string   `gorm:"type:text" json:"features"`
	Area          *string   `gorm:"type:text" json:"area"` // geometry reference produced by the map editor
	ReservationID *uint     `gorm:"index" json:"reservation_id"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	// Associations
	Map   PropertyMap `gorm:"foreignKey:MapID" json:"map,omitempty"`
	Block *Block      `gorm:"foreignKey:BlockID" json:"block,omitempty"`
}

// TableName specifies the table name for Lot
func (Lot) TableName() string {
	return "lots"
}

// Lot status constants
const (
	LotStatusAvailable = "available"
	LotStatusReserved  = "reserved"
	LotStatusSold      = "sold"
	LotStatusBlocked   = "blocked"
)

// PricePerM2 derives the unit price from the total price and size.
func (l *Lot) PricePerM2() float64 {
	if l.SizeM2 <= 0 {
		return 0
	}
	return l.Price / l.SizeM2
}

// IsAvailable returns true if the lot can enter a reservation
func (l *Lot) IsAvailable() bool {
	return l.Status == LotStatusAvailable
}

// LotResponse is the JSON response format for lots
type LotResponse struct {
	ID            uint    `json:"id"`
	MapID         uint    `json:"map_id"`
	MapName       string  `json:"map_name"`
	BlockID       *uint   `json:"block_id"`
	BlockName     *string `json:"block_name"`
	Number        string  `json:"number"`
	Status        string  `json:"status"`
	SizeM2        float64 `json:"size_m2"`
	Price         float64 `json:"price"`
	PricePerM2    float64 `json:"price_per_m2"`
	Description   *string `json:"description"`
	Features      *string `json:"features"`
	Area          *string `json:"area"`
	ReservationID *uint   `json:"reservation_id"`
}

// ToResponse converts Lot to LotResponse
func (l *Lot) ToResponse() LotResponse {
	resp := LotResponse{
		ID:            l.ID,
		MapID:         l.MapID,
		MapName:       l.Map.Name,
		BlockID:       l.BlockID,
		Number:        l.Number,
		Status:        l.Status,
		SizeM2:        l.SizeM2,
		Price:         l.Price,
		PricePerM2:    l.PricePerM2(),
		Description:   l.Description,
		Features:      l.Features,
		Area:          l.Area,
		ReservationID: l.ReservationID,
	}
	if l.Block != nil {
		resp.BlockName = &l.Block.Name
	}
	return resp
}

// LotStats holds per-map lot counts by status
type LotStats struct {
	Available int64 `json:"available"`
	Reserved  int64 `json:"reserved"`
	Sold      int64 `json:"sold"`
	Blocked   int64 `json:"blocked"`
}
