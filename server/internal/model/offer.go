package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Offer mirrors a row of the offer table written by the agent.
type Offer struct {
	OfferID       string          `gorm:"column:offer_id;primaryKey" json:"offer_id"`
	RunID         string          `gorm:"column:run_id;primaryKey" json:"run_id"`
	RouteKey      string          `gorm:"column:route_key" json:"route_key"`
	Source        string          `gorm:"column:source" json:"source"`
	Carrier       string          `gorm:"column:carrier" json:"carrier"`
	DepartureDate string          `gorm:"column:departure_date" json:"departure_date"`
	ReturnDate    string          `gorm:"column:return_date" json:"return_date"`
	Price         decimal.Decimal `gorm:"column:price;type:Decimal(18, 2)" json:"price"`
	Currency      string          `gorm:"column:currency" json:"currency"`
	Stops         int32           `gorm:"column:stops" json:"stops"`
	Duration      string          `gorm:"column:duration" json:"duration"`
	RetrievedAt   time.Time       `gorm:"column:retrieved_at;type:DateTime64(3, 'UTC')" json:"retrieved_at"`
	InsertedAt    time.Time       `gorm:"column:inserted_at;type:DateTime64(3, 'UTC')" json:"inserted_at"`
}

func (Offer) TableName() string {
	return "offer"
}

type SourceCount struct {
	Source string `gorm:"column:source" json:"source"`
	Offers int64  `gorm:"column:offers" json:"offers"`
}

// RunPriceStats is one row of the run_min_price view.
type RunPriceStats struct {
	RouteKey    string          `gorm:"column:route_key" json:"route_key"`
	RunID       string          `gorm:"column:run_id" json:"run_id"`
	Currency    string          `gorm:"column:currency" json:"currency"`
	MinPrice    decimal.Decimal `gorm:"column:min_price" json:"min_price"`
	MaxPrice    decimal.Decimal `gorm:"column:max_price" json:"max_price"`
	AvgPrice    float64         `gorm:"column:avg_price" json:"avg_price"`
	Offers      int64           `gorm:"column:offers" json:"offers"`
	RetrievedAt time.Time       `gorm:"column:retrieved_at" json:"retrieved_at"`
}

func (RunPriceStats) TableName() string {
	return "run_min_price"
}
