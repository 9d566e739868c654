package models

import (
	"time"
)

// PropertyMap represents a subdivided property: the drawing clients render,
// plus the blocks and lots it contains.
type PropertyMap struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	GUID        string    `gorm:"column:guid;not null" json:"guid"`
	ImagePath   *string   `json:"image_path"`
	ThumbPath   *string   `json:"thumb_path"`
	Width       int       `gorm:"default:0" json:"width"`
	Height      int       `gorm:"default:0" json:"height"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Associations
	Blocks []Block `gorm:"foreignKey:MapID" json:"blocks,omitempty"`
	Lots   []Lot   `gorm:"foreignKey:MapID" json:"lots,omitempty"`
}

// TableName specifies the table name for PropertyMap
func (PropertyMap) TableName() string {
	return "maps"
}

// MapResponse is the JSON response format for maps
type MapResponse struct {
	ID            uint      `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	ImagePath     *string   `json:"image_path"`
	ThumbPath     *string   `json:"thumb_path"`
	Width         int       `json:"width"`
	Height        int       `json:"height"`
	AvailableLots int       `json:"available_lots"`
	ReservedLots  int       `json:"reserved_lots"`
	SoldLots      int       `json:"sold_lots"`
	BlockedLots   int       `json:"blocked_lots"`
	CreatedAt     time.Time `json:"created_at"`
}

// ToResponse converts PropertyMap to MapResponse
func (m *PropertyMap) ToResponse() MapResponse {
	var available, reserved, sold, blocked int
	for _, lot := range m.Lots {
		switch lot.Status {
		case LotStatusAvailable:
			available++
		case LotStatusReserved:
			reserved++
		case LotStatusSold:
			sold++
		case LotStatusBlocked:
			blocked++
		}
	}

	return MapResponse{
		ID:            m.ID,
		Name:          m.Name,
		Description:   m.Description,
		ImagePath:     m.ImagePath,
		ThumbPath:     m.ThumbPath,
		Width:         m.Width,
		Height:        m.Height,
		AvailableLots: available,
		ReservedLots:  reserved,
		SoldLots:      sold,
		BlockedLots:   blocked,
		CreatedAt:     m.CreatedAt,
	}
}

// Block is a named grouping of lots within a map.
type Block struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	MapID       uint      `gorm:"not null;index" json:"map_id"`
	Name        string    `gorm:"not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Associations
	Map  PropertyMap `gorm:"foreignKey:MapID" json:"map,omitempty"`
	Lots []Lot       `gorm:"foreignKey:BlockID" json:"lots,omitempty"`
}

// TableName specifies the table name for Block
func (Block) TableName() string {
	return "blocks"
}
