package ws

import (
	"context"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"gttbot/internal/exchange"
	"gttbot/internal/logger"
)

func New(authorize AuthorizeFunc, log *logger.Logger) *Client {
	return &Client{
		authorize:    authorize,
		log:          log,
		events:       make(chan exchange.Event, 100),
		stopCh:       make(chan struct{}),
		reconnectMin: 1 * time.Second,
		reconnectMax: 30 * time.Second,
	}
}

func (w *Client) Connect(ctx context.Context) error {
	wsURL, err := w.authorize(ctx)
	if err != nil {
		return fmt.Errorf("Не удалось авторизовать фид: %w", err)
	}

	w.logEntry().Info("Подключение к фиду рыночных данных.")

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("Не удалось подключиться к фиду: %w", err)
	}

	w.conn = conn
	w.conn.SetReadLimit(2 << 20)

	w.logEntry().Info("Фид рыночных данных подключён.")

	go w.readLoop()

	return nil
}

func (w *Client) Close() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		if w.conn != nil {
			_ = w.conn.Close()
		}
	})
}

func (w *Client) Events() <-chan exchange.Event {
	return w.events
}

func (w *Client) logEntry() *logrus.Entry {
	return w.log.WithComponent("upstox_feed")
}
