package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AssetRecord is one tradable instrument as stored by the backend.
type AssetRecord struct {
	ID             int64           `json:"id"`
	Figi           string          `json:"figi"`
	Ticker         string          `json:"ticker"`
	Increment      decimal.Decimal `json:"increment"`
	Lot            int64           `json:"lot"`
	Price          decimal.Decimal `json:"price"`
	Sell           bool            `json:"sell"`
	Amount         int64           `json:"amount"`
	Executed       int64           `json:"executed"`
	AvgPrice       decimal.Decimal `json:"exec_price"`
	AssetType      string          `json:"asset_type"`
	MorningTrading bool            `json:"morning_trading"`
	EveningTrading bool            `json:"evening_trading"`
}

// SpreadRecord is one statistical-arbitrage pair as stored by the backend.
// Leg sub-records carry their own executed amounts and average prices so a
// restarted program resumes with correct blended economics.
type SpreadRecord struct {
	ID              int64           `json:"id"`
	Sell            bool            `json:"sell"`
	Price           decimal.Decimal `json:"price"`
	Amount          int64           `json:"amount"`
	Executed        int64           `json:"executed"`
	NearLegType     string          `json:"near_leg_type"`
	BaseAssetAmount int64           `json:"base_asset_amount"`
	FarLeg          AssetRecord     `json:"far_leg"`
	NearLeg         AssetRecord     `json:"near_leg"`
}

// Checkpoint is locally journaled execution progress for one target.
// It backs crash recovery when the backend is unreachable at exit.
type Checkpoint struct {
	Program   string `gorm:"primaryKey"`
	TargetID  int64  `gorm:"primaryKey"`
	Ticker    string
	Executed  int64
	AvgPrice  string // decimal serialized as string, sqlite has no exact numeric
	UpdatedAt time.Time
}

// StopSnapshot records one submitted stop order so the ladder can be
// restored after broker-side expiration.
type StopSnapshot struct {
	ID       uint `gorm:"primaryKey"`
	Ticker   string
	Figi     string
	Price    string
	Amount   int64
	Sell     bool
	PlacedAt time.Time
}
