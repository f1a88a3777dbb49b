package ws

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"gttbot/internal/exchange"
	"gttbot/internal/logger"
)

// AuthorizeFunc obtains a fresh one-time websocket address; the redirect URI
// returned by the feed authorize endpoint cannot be reused across connects.
type AuthorizeFunc func(ctx context.Context) (string, error)

type Client struct {
	authorize AuthorizeFunc
	log       *logger.Logger

	conn     *websocket.Conn
	events   chan exchange.Event
	stopCh   chan struct{}
	stopOnce sync.Once

	mu            sync.Mutex
	subscriptions []subscription

	reconnectMin time.Duration
	reconnectMax time.Duration
}

type subscription struct {
	Mode           string
	InstrumentKeys []string
}

type feedMessage struct {
	Feeds     map[string]feedEntry `json:"feeds"`
	CurrentTs string               `json:"currentTs"`
}

type feedEntry struct {
	LTPC     *ltpc     `json:"ltpc"`
	FullFeed *fullFeed `json:"fullFeed"`
}

type ltpc struct {
	LTP float64 `json:"ltp"`
	CP  float64 `json:"cp"`
	LTT string  `json:"ltt"`
	LTQ string  `json:"ltq"`
}

type fullFeed struct {
	MarketFF *marketFF `json:"marketFF"`
}

type marketFF struct {
	LTPC       *ltpc       `json:"ltpc"`
	MarketOHLC *marketOHLC `json:"marketOHLC"`
}

type marketOHLC struct {
	OHLC []ohlcEntry `json:"ohlc"`
}

type ohlcEntry struct {
	Interval string  `json:"interval"`
	Open     float64 `json:"open"`
	High     float64 `json:"high"`
	Low      float64 `json:"low"`
	Close    float64 `json:"close"`
	Ts       string  `json:"ts"`
}

type subscribeMessage struct {
	GUID   string        `json:"guid"`
	Method string        `json:"method"`
	Data   subscribeData `json:"data"`
}

type subscribeData struct {
	Mode           string   `json:"mode"`
	InstrumentKeys []string `json:"instrumentKeys"`
}
