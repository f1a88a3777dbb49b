package ws

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Subscribe registers the instrument keys for the given mode ("ltpc" or
// "full") and replays the subscription after every reconnect.
func (w *Client) Subscribe(ctx context.Context, mode string, instrumentKeys []string) error {
	w.mu.Lock()
	w.subscriptions = append(w.subscriptions, subscription{
		Mode:           mode,
		InstrumentKeys: instrumentKeys,
	})
	w.mu.Unlock()

	return w.sendSubscribe(mode, instrumentKeys)
}

func (w *Client) sendSubscribe(mode string, instrumentKeys []string) error {
	msg := subscribeMessage{
		GUID:   uuid.NewString(),
		Method: "sub",
		Data: subscribeData{
			Mode:           mode,
			InstrumentKeys: instrumentKeys,
		},
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("Не удалось подготовить подписку: %w", err)
	}

	// Feed expects the subscription request as a binary frame.
	if err := w.conn.WriteMessage(websocket.BinaryMessage, payload); err != nil {
		return fmt.Errorf("Не удалось отправить подписку: %w", err)
	}

	w.logEntry().WithFields(map[string]interface{}{
		"mode":            mode,
		"instrument_keys": instrumentKeys,
	}).Info("Подписка на фид отправлена.")

	return nil
}

func (w *Client) resubscribe() error {
	w.mu.Lock()
	subs := make([]subscription, len(w.subscriptions))
	copy(subs, w.subscriptions)
	w.mu.Unlock()

	for _, sub := range subs {
		if err := w.sendSubscribe(sub.Mode, sub.InstrumentKeys); err != nil {
			return err
		}
	}
	return nil
}
