package tinkoff

import (
	"net/http"
	"time"

	"dipbot/internal/logger"
)

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	log        *logger.Logger
}

func New(baseURL, token string, log *logger.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		log: log,
	}
}
