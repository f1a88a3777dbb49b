package upstox

import (
	"net/http"
	"time"

	"gttbot/internal/exchange/upstox/portfolio"
	"gttbot/internal/exchange/upstox/ws"
	"gttbot/internal/logger"
)

type Client struct {
	baseURL      string
	portfolioURL string
	accessToken  string

	httpClient *http.Client
	log        *logger.Logger

	feed      *ws.Client
	portfolio *portfolio.Client
}

func New(baseURL, portfolioURL, accessToken string, log *logger.Logger) *Client {
	return &Client{
		baseURL:      baseURL,
		portfolioURL: portfolioURL,
		accessToken:  accessToken,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		log: log,
	}
}
