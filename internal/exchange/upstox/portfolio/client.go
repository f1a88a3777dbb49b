package portfolio

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"gttbot/internal/logger"
	"gttbot/internal/models"
)

// Client consumes the portfolio stream feed: asynchronous order and GTT
// lifecycle updates, possibly out of order relative to submission.
type Client struct {
	baseURL     string
	accessToken string
	updateTypes []string
	log         *logger.Logger

	conn     *websocket.Conn
	updates  chan models.PortfolioUpdate
	stopCh   chan struct{}
	stopOnce sync.Once

	reconnectMin time.Duration
	reconnectMax time.Duration
}

func New(baseURL, accessToken string, updateTypes []string, log *logger.Logger) *Client {
	if len(updateTypes) == 0 {
		updateTypes = []string{string(models.UpdateKindOrder), string(models.UpdateKindGtt)}
	}
	return &Client{
		baseURL:      baseURL,
		accessToken:  accessToken,
		updateTypes:  updateTypes,
		log:          log,
		updates:      make(chan models.PortfolioUpdate, 100),
		stopCh:       make(chan struct{}),
		reconnectMin: 1 * time.Second,
		reconnectMax: 30 * time.Second,
	}
}

func (p *Client) Connect(ctx context.Context) error {
	p.logEntry().Info("Подключение к потоку портфеля.")

	conn, err := p.dial(ctx)
	if err != nil {
		return err
	}
	p.conn = conn

	p.logEntry().Info("Поток портфеля подключён.")

	go p.readLoop()

	return nil
}

func (p *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	wsURL := p.baseURL
	if len(p.updateTypes) > 0 {
		params := url.Values{}
		params.Set("update_types", strings.Join(p.updateTypes, ","))
		wsURL += "?" + params.Encode()
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+p.accessToken)
	header.Set("Accept", "*/*")

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		return nil, fmt.Errorf("Не удалось подключиться к потоку портфеля: %w", err)
	}
	conn.SetReadLimit(2 << 20)
	return conn, nil
}

func (p *Client) Close() {
	p.stopOnce.Do(func() {
		close(p.stopCh)
		if p.conn != nil {
			_ = p.conn.Close()
		}
	})
}

func (p *Client) Updates() <-chan models.PortfolioUpdate {
	return p.updates
}

func (p *Client) logEntry() *logrus.Entry {
	return p.log.WithComponent("upstox_portfolio")
}
