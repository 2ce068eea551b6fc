package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mohammed-shakir/seattle-ev-map/internal/core/httpclient"
)

type HTTP struct {
	client *http.Client
	url    string
}

func NewHTTP(client *http.Client, url string) *HTTP {
	if client == nil {
		client = httpclient.NewOutbound(0)
	}
	return &HTTP{client: client, url: url}
}

func (h *HTTP) Location() string { return h.url }

func (h *HTTP) Fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/geo+json, application/json")

	start := time.Now()
	resp, err := h.client.Do(req)
	if err != nil {
		observe("http", start, err)
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
		err := fmt.Errorf("upstream status %d: %s", resp.StatusCode, string(b))
		observe("http", start, err)
		return nil, err
	}

	b, err := io.ReadAll(resp.Body)
	observe("http", start, err)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return b, nil
}
