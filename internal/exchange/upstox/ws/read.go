package ws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"

	"gttbot/internal/exchange"
)

func (w *Client) readLoop() {
	w.logEntry().Debug("readLoop запущен.")

	for {
		select {
		case <-w.stopCh:
			return
		default:
		}
		_, data, err := w.conn.ReadMessage()
		if err != nil {
			select {
			case <-w.stopCh:
				return
			default:
			}
			w.logEntry().WithError(err).Warn("Ошибка чтения фида.")

			if !w.reconnect() {
				return
			}
			continue
		}

		var msg feedMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			w.logEntry().WithError(err).Warn("Не удалось разобрать сообщение фида.")
			continue
		}

		if len(msg.Feeds) == 0 {
			continue
		}
		w.handleFeeds(msg)
	}
}

func (w *Client) reconnect() bool {
	backoff := w.reconnectMin

	for {
		select {
		case <-w.stopCh:
			return false
		default:
		}

		w.logEntry().Info("Попытка переподключения к фиду.")

		time.Sleep(backoff)

		wsURL, err := w.authorize(context.Background())
		if err != nil {
			w.logEntry().WithError(err).Warn("Не удалось повторно авторизовать фид.")
			backoff = w.nextBackoff(backoff)
			continue
		}

		conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
		if err != nil {
			w.logEntry().WithError(err).Warn("Не удалось переподключиться к фиду.")
			backoff = w.nextBackoff(backoff)
			continue
		}

		if w.conn != nil {
			_ = w.conn.Close()
		}

		w.conn = conn
		w.conn.SetReadLimit(2 << 20)

		if err := w.resubscribe(); err != nil {
			w.logEntry().WithError(err).Warn("Не удалось восстановить подписки фида.")
			backoff = w.nextBackoff(backoff)
			continue
		}

		select {
		case w.events <- exchange.Event{Type: exchange.EventTypeReconnect}:
		case <-w.stopCh:
			return false
		default:
		}
		w.logEntry().Info("Фид переподключён, подписки восстановлены.")
		return true
	}
}

func (w *Client) nextBackoff(current time.Duration) time.Duration {
	next := current * 2
	if next > w.reconnectMax {
		return w.reconnectMax
	}
	return next
}
