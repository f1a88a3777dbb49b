package upstox

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/google/uuid"

	"gttbot/internal/exchange"
	"gttbot/internal/models"
)

func (c *Client) PlaceGttOrder(ctx context.Context, req exchange.GttOrderRequest) (string, error) {
	product := req.Product
	if product == "" {
		product = "I"
	}

	rules := make([]map[string]any, 0, len(req.Rules))
	for _, rule := range req.Rules {
		rules = append(rules, map[string]any{
			"strategy":      rule.Strategy,
			"trigger_type":  rule.TriggerType,
			"trigger_price": rule.TriggerPrice,
		})
	}

	body := map[string]any{
		"type":             "MULTIPLE",
		"quantity":         req.Quantity,
		"product":          product,
		"instrument_token": req.InstrumentKey,
		"transaction_type": req.TransactionType,
		"rules":            rules,
	}

	var resp upstoxResponse[struct {
		GttOrderIDs []string `json:"gtt_order_ids"`
	}]

	if err := c.doRequest(ctx, http.MethodPost, "/v3/order/gtt/place", nil, body, &resp); err != nil {
		return "", err
	}
	if len(resp.Data.GttOrderIDs) == 0 {
		return "", fmt.Errorf("Ответ на постановку GTT не содержит идентификатора ордера.")
	}

	c.log.WithInstrument(req.InstrumentKey).
		WithField("gtt_order_id", resp.Data.GttOrderIDs[0]).
		Debug("GTT ордер принят брокером.")

	return resp.Data.GttOrderIDs[0], nil
}

func (c *Client) CancelGttOrder(ctx context.Context, gttOrderID string) (exchange.CancelResult, error) {
	body := map[string]any{
		"gtt_order_id": gttOrderID,
	}

	var resp upstoxResponse[struct {
		GttOrderIDs []string `json:"gtt_order_ids"`
	}]

	if err := c.doRequest(ctx, http.MethodPost, "/v3/order/gtt/cancel", nil, body, &resp); err != nil {
		return exchange.CancelResult{}, err
	}

	c.log.WithOrderID(gttOrderID).WithField("status", resp.Status).Debug("GTT ордер отменён.")

	return exchange.CancelResult{Status: resp.Status}, nil
}

func (c *Client) GetGttOrderDetails(ctx context.Context, gttOrderID string) ([]models.GttRuleState, error) {
	params := url.Values{}
	params.Set("gtt_order_id", gttOrderID)

	var resp upstoxResponse[[]struct {
		GttOrderID string                `json:"gtt_order_id"`
		Rules      []models.GttRuleState `json:"rules"`
	}]

	if err := c.doRequest(ctx, http.MethodGet, "/v3/order/gtt", params, nil, &resp); err != nil {
		return nil, err
	}

	for _, order := range resp.Data {
		if order.GttOrderID == gttOrderID {
			return order.Rules, nil
		}
	}
	return nil, fmt.Errorf("GTT ордер не найден: %s", gttOrderID)
}

func (c *Client) PlaceOrder(ctx context.Context, req exchange.OrderRequest) (string, error) {
	product := req.Product
	if product == "" {
		product = "I"
	}
	validity := req.Validity
	if validity == "" {
		validity = "DAY"
	}
	orderType := req.OrderType
	if orderType == "" {
		orderType = "LIMIT"
	}
	tag := req.Tag
	if tag == "" {
		tag = uuid.NewString()
	}

	body := map[string]any{
		"quantity":           req.Quantity,
		"product":            product,
		"validity":           validity,
		"price":              req.Price,
		"tag":                tag,
		"instrument_token":   req.InstrumentKey,
		"order_type":         orderType,
		"transaction_type":   req.TransactionType,
		"disclosed_quantity": 0,
		"trigger_price":      0.0,
		"is_amo":             false,
		"slice":              false,
	}

	var resp upstoxResponse[struct {
		OrderIDs []string `json:"order_ids"`
	}]

	if err := c.doRequest(ctx, http.MethodPost, "/v3/order/place", nil, body, &resp); err != nil {
		return "", err
	}
	if len(resp.Data.OrderIDs) == 0 {
		return "", fmt.Errorf("Ответ на постановку ордера не содержит идентификатора.")
	}

	return resp.Data.OrderIDs[0], nil
}
