package upstox

import (
	"context"
	"fmt"

	"gttbot/internal/exchange"
	"gttbot/internal/exchange/upstox/portfolio"
	"gttbot/internal/exchange/upstox/ws"
	"gttbot/internal/models"
)

func (c *Client) ConnectFeed(ctx context.Context) (<-chan exchange.Event, error) {
	if c.feed != nil {
		return c.feed.Events(), nil
	}

	c.feed = ws.New(c.feedAuthorize, c.log)
	if err := c.feed.Connect(ctx); err != nil {
		c.feed = nil
		return nil, err
	}
	return c.feed.Events(), nil
}

func (c *Client) SubscribeFeed(ctx context.Context, mode string, instrumentKeys []string) error {
	if c.feed == nil {
		return fmt.Errorf("Фид не подключён.")
	}
	return c.feed.Subscribe(ctx, mode, instrumentKeys)
}

func (c *Client) ConnectPortfolio(ctx context.Context) (<-chan models.PortfolioUpdate, error) {
	if c.portfolio != nil {
		return c.portfolio.Updates(), nil
	}

	c.portfolio = portfolio.New(c.portfolioURL, c.accessToken, nil, c.log)
	if err := c.portfolio.Connect(ctx); err != nil {
		c.portfolio = nil
		return nil, err
	}
	return c.portfolio.Updates(), nil
}

func (c *Client) Close() {
	if c.feed != nil {
		c.feed.Close()
	}
	if c.portfolio != nil {
		c.portfolio.Close()
	}
}
