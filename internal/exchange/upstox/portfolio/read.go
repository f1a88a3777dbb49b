package portfolio

import (
	"context"
	"encoding/json"
	"time"

	"gttbot/internal/models"
)

func (p *Client) readLoop() {
	p.logEntry().Debug("readLoop запущен.")

	for {
		select {
		case <-p.stopCh:
			return
		default:
		}
		_, data, err := p.conn.ReadMessage()
		if err != nil {
			select {
			case <-p.stopCh:
				return
			default:
			}
			p.logEntry().WithError(err).Warn("Ошибка чтения потока портфеля.")

			if !p.reconnect() {
				return
			}
			continue
		}

		var update models.PortfolioUpdate
		if err := json.Unmarshal(data, &update); err != nil {
			p.logEntry().WithError(err).Warn("Не удалось разобрать обновление портфеля.")
			continue
		}

		if update.Kind == "" {
			p.logEntry().Debug("Обновление без update_type, пропуск.")
			continue
		}

		p.logEntry().WithFields(map[string]interface{}{
			"update_type":  update.Kind,
			"gtt_order_id": update.GttOrderID,
			"order_id":     update.OrderID,
			"status":       update.Status,
			"rules":        len(update.Rules),
		}).Debug("portfolio_update")

		select {
		case p.updates <- update:
		case <-p.stopCh:
			return
		}
	}
}

func (p *Client) reconnect() bool {
	backoff := p.reconnectMin

	for {
		select {
		case <-p.stopCh:
			return false
		default:
		}

		p.logEntry().Info("Попытка переподключения к потоку портфеля.")

		time.Sleep(backoff)

		conn, err := p.dial(context.Background())
		if err != nil {
			p.logEntry().WithError(err).Warn("Не удалось переподключиться к потоку портфеля.")
			backoff = p.nextBackoff(backoff)
			continue
		}

		if p.conn != nil {
			_ = p.conn.Close()
		}

		p.conn = conn
		p.logEntry().Info("Поток портфеля переподключён.")
		return true
	}
}

func (p *Client) nextBackoff(current time.Duration) time.Duration {
	next := current * 2
	if next > p.reconnectMax {
		return p.reconnectMax
	}
	return next
}
