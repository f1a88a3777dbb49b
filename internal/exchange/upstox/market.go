package upstox

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"gttbot/internal/models"
)

func (c *Client) VerifyToken(ctx context.Context) error {
	if _, err := c.feedAuthorize(ctx); err != nil {
		return fmt.Errorf("Токен не прошёл проверку: %w", err)
	}
	return nil
}

func (c *Client) feedAuthorize(ctx context.Context) (string, error) {
	var resp upstoxResponse[struct {
		AuthorizedRedirectURI string `json:"authorized_redirect_uri"`
	}]

	if err := c.doRequest(ctx, http.MethodGet, "/v3/feed/market-data-feed/authorize", nil, nil, &resp); err != nil {
		return "", err
	}
	if resp.Data.AuthorizedRedirectURI == "" {
		return "", fmt.Errorf("Авторизация фида не вернула адрес подключения.")
	}
	return resp.Data.AuthorizedRedirectURI, nil
}

func (c *Client) GetOptionChain(ctx context.Context, instrumentKey, expiryDate string) ([]models.OptionContract, error) {
	params := url.Values{}
	params.Set("instrument_key", instrumentKey)
	params.Set("expiry_date", expiryDate)

	var resp upstoxResponse[[]models.OptionContract]

	if err := c.doRequest(ctx, http.MethodGet, "/v2/option/contract", params, nil, &resp); err != nil {
		return nil, err
	}

	return resp.Data, nil
}

func (c *Client) GetIntradayCandles(ctx context.Context, instrumentKey string) ([]models.Candle, error) {
	path := fmt.Sprintf("/v3/historical-candle/intraday/%s/minutes/1", url.PathEscape(instrumentKey))

	var resp upstoxResponse[struct {
		Candles [][]any `json:"candles"`
	}]

	if err := c.doRequest(ctx, http.MethodGet, path, nil, nil, &resp); err != nil {
		return nil, err
	}

	candles := make([]models.Candle, 0, len(resp.Data.Candles))
	for _, raw := range resp.Data.Candles {
		candle, err := parseCandle(raw)
		if err != nil {
			c.log.WithComponent("upstox").WithError(err).Warn("Пропущена некорректная свеча.")
			continue
		}
		candles = append(candles, candle)
	}

	return candles, nil
}

// Upstox candles arrive as positional arrays:
// [timestamp, open, high, low, close, volume, open_interest].
func parseCandle(raw []any) (models.Candle, error) {
	if len(raw) < 5 {
		return models.Candle{}, fmt.Errorf("Неполная свеча: %v", raw)
	}

	tsStr, ok := raw[0].(string)
	if !ok {
		return models.Candle{}, fmt.Errorf("Некорректная метка времени свечи: %v", raw[0])
	}
	ts, err := time.Parse(time.RFC3339, tsStr)
	if err != nil {
		return models.Candle{}, fmt.Errorf("Некорректная метка времени свечи %q: %w", tsStr, err)
	}

	// Positions are significant: a non-numeric value must fail the candle,
	// not shift later values into the wrong slots.
	values := make([]float64, 4)
	for i := range values {
		f, ok := raw[i+1].(float64)
		if !ok {
			return models.Candle{}, fmt.Errorf("Некорректное значение свечи на позиции %d: %v", i+1, raw[i+1])
		}
		values[i] = f
	}

	candle := models.Candle{
		Timestamp: ts,
		Open:      values[0],
		High:      values[1],
		Low:       values[2],
		Close:     values[3],
	}
	if len(raw) > 5 {
		if volume, ok := raw[5].(float64); ok {
			candle.Volume = volume
		}
	}
	return candle, nil
}
