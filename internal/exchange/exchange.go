package exchange

import (
	"context"
	"gttbot/internal/models"
)

type EventType string

const (
	EventTypeTick      EventType = "Tick"
	EventTypeReconnect EventType = "Reconnect"
)

type Event struct {
	Type EventType
	Tick *models.Tick
}

type GttOrderRequest struct {
	InstrumentKey   string
	Quantity        int
	TransactionType string
	Product         string
	Rules           []models.GttRule
}

type OrderRequest struct {
	InstrumentKey   string
	Quantity        int
	Price           float64
	TransactionType string
	OrderType       string
	Product         string
	Validity        string
	Tag             string
}

type CancelResult struct {
	Status string
}

type Client interface {
	VerifyToken(ctx context.Context) error
	ConnectFeed(ctx context.Context) (<-chan Event, error)
	SubscribeFeed(ctx context.Context, mode string, instrumentKeys []string) error
	ConnectPortfolio(ctx context.Context) (<-chan models.PortfolioUpdate, error)
	PlaceGttOrder(ctx context.Context, req GttOrderRequest) (string, error)
	CancelGttOrder(ctx context.Context, gttOrderID string) (CancelResult, error)
	GetGttOrderDetails(ctx context.Context, gttOrderID string) ([]models.GttRuleState, error)
	PlaceOrder(ctx context.Context, req OrderRequest) (string, error)
	GetOptionChain(ctx context.Context, instrumentKey, expiryDate string) ([]models.OptionContract, error)
	GetIntradayCandles(ctx context.Context, instrumentKey string) ([]models.Candle, error)
}
