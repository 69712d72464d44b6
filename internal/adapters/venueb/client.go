// Package venueb talks to the blockchain-settled CLOB (a Polymarket-shaped
// venue): EIP-712 wallet auth, HMAC-signed order placement, and on-chain
// balance reads.
package venueb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultCLOBBase  = "https://clob.polymarket.com"
	defaultGammaBase = "https://gamma-api.polymarket.com"

	booksRatePerSec   = 30
	gammaRatePerSec   = 18
	generalRatePerSec = 540

	maxRetries    = 5
	baseRetryWait = 500 * time.Millisecond
	maxRetryWait  = 8 * time.Second
)

// Client is the rate-limited, retrying HTTP transport shared by the
// authenticated and unauthenticated calls this package makes.
type Client struct {
	http         *http.Client
	clobBase     string
	gammaBase    string
	clobLimiter  *rate.Limiter
	gammaLimiter *rate.Limiter
	booksLimiter *rate.Limiter
}

// NewClient builds a Client against the given base URLs, falling back to
// production endpoints when left blank.
func NewClient(clobBase, gammaBase string) *Client {
	if clobBase == "" {
		clobBase = defaultCLOBBase
	}
	if gammaBase == "" {
		gammaBase = defaultGammaBase
	}
	return &Client{
		http:         &http.Client{Timeout: 10 * time.Second},
		clobBase:     clobBase,
		gammaBase:    gammaBase,
		clobLimiter:  rate.NewLimiter(generalRatePerSec, 50),
		gammaLimiter: rate.NewLimiter(gammaRatePerSec, 10),
		booksLimiter: rate.NewLimiter(booksRatePerSec, 5),
	}
}

func (c *Client) get(ctx context.Context, limiter *rate.Limiter, url string, out any) error {
	return c.doWithRetry(ctx, limiter, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return c.http.Do(req)
	}, out)
}

func (c *Client) post(ctx context.Context, limiter *rate.Limiter, url string, body, out any) error {
	return c.doWithRetry(ctx, limiter, func() (*http.Response, error) {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		return c.http.Do(req)
	}, out)
}

func (c *Client) doWithRetry(ctx context.Context, limiter *rate.Limiter, fn func() (*http.Response, error), out any) error {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		resp, err := fn()
		if err != nil {
			if attempt == maxRetries {
				return fmt.Errorf("request failed after %d retries: %w", maxRetries, err)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			slog.Warn("venueb: rate limited by API", "attempt", attempt+1)
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 500 {
			resp.Body.Close()
			if attempt == maxRetries {
				return fmt.Errorf("server error %d after %d retries", resp.StatusCode, maxRetries)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 400 {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return fmt.Errorf("client error %d: %s", resp.StatusCode, string(body))
		}

		if out == nil {
			resp.Body.Close()
			return nil
		}
		defer resp.Body.Close()
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}
	return fmt.Errorf("exhausted %d retries", maxRetries)
}

// sleep backs off exponentially (base 0.5s, factor 2) capped at 8s.
func (c *Client) sleep(ctx context.Context, attempt int) {
	wait := time.Duration(math.Pow(2, float64(attempt))) * baseRetryWait
	if wait > maxRetryWait {
		wait = maxRetryWait
	}
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}
