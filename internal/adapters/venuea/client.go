// Package venuea talks to the regulated, integer-cent exchange venue: every
// request is signed with an RSA-PSS signature over timestamp+method+path,
// and prices/quantities travel the wire as whole cents/contracts.
package venuea

import (
	"bytes"
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://api.elections.kalshi.com/trade-api/v2"

	requestRatePerSec = 10
	maxRetries        = 5
	baseRetryWait     = 500 * time.Millisecond
	maxRetryWait      = 8 * time.Second
)

// Client is the RSA-PSS-signed, rate-limited HTTP transport for the
// regulated-exchange venue.
type Client struct {
	http       *http.Client
	baseURL    string
	apiKey     string
	privateKey *rsa.PrivateKey
	limiter    *rate.Limiter
}

// NewClient builds a Client authenticated with apiKey and an RSA private
// key in PEM format (PKCS#1 or PKCS#8).
func NewClient(baseURL, apiKey, privateKeyPEM string) (*Client, error) {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	key, err := parsePrivateKey(privateKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("venuea: parse private key: %w", err)
	}

	return &Client{
		http:       &http.Client{Timeout: 10 * time.Second},
		baseURL:    baseURL,
		apiKey:     apiKey,
		privateKey: key,
		limiter:    rate.NewLimiter(requestRatePerSec, 20),
	}, nil
}

func parsePrivateKey(pemStr string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(pemStr))
	if block == nil {
		return nil, fmt.Errorf("no PEM block found")
	}

	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse PKCS8: %w", err)
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("private key is not RSA")
	}
	return key, nil
}

// sign returns the auth headers for a request to method+path (path must
// exclude the query string — the signature covers path only).
func (c *Client) sign(method, path string) (map[string]string, error) {
	tsMillis := strconv.FormatInt(time.Now().UnixMilli(), 10)
	message := tsMillis + method + path

	digest := sha256.Sum256([]byte(message))
	sig, err := rsa.SignPSS(rand.Reader, c.privateKey, crypto.SHA256, digest[:], &rsa.PSSOptions{
		SaltLength: rsa.PSSSaltLengthAuto,
		Hash:       crypto.SHA256,
	})
	if err != nil {
		return nil, fmt.Errorf("sign request: %w", err)
	}

	return map[string]string{
		"KALSHI-ACCESS-KEY":       c.apiKey,
		"KALSHI-ACCESS-TIMESTAMP": tsMillis,
		"KALSHI-ACCESS-SIGNATURE": base64.StdEncoding.EncodeToString(sig),
	}, nil
}

func (c *Client) get(ctx context.Context, path string, query string, out any) error {
	return c.doWithRetry(ctx, http.MethodGet, path, func(url string) (*http.Response, error) {
		headers, err := c.sign(http.MethodGet, path)
		if err != nil {
			return nil, err
		}
		fullURL := c.baseURL + path
		if query != "" {
			fullURL += "?" + query
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, err
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		req.Header.Set("Content-Type", "application/json")
		return c.http.Do(req)
	}, out)
}

func (c *Client) post(ctx context.Context, method, path string, body, out any) error {
	return c.doWithRetry(ctx, method, path, func(url string) (*http.Response, error) {
		headers, err := c.sign(method, path)
		if err != nil {
			return nil, err
		}
		var reader io.Reader
		if body != nil {
			b, err := json.Marshal(body)
			if err != nil {
				return nil, fmt.Errorf("marshal body: %w", err)
			}
			reader = bytes.NewReader(b)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return nil, err
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		req.Header.Set("Content-Type", "application/json")
		return c.http.Do(req)
	}, out)
}

func (c *Client) doWithRetry(ctx context.Context, method, path string, fn func(url string) (*http.Response, error), out any) error {
	authRefreshed := false
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		resp, err := fn(c.baseURL + path)
		if err != nil {
			if attempt == maxRetries {
				return fmt.Errorf("request failed after %d retries: %w", maxRetries, err)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusUnauthorized {
			resp.Body.Close()
			if !authRefreshed {
				authRefreshed = true
				// There's no separate credential store to reload here: the
				// signature itself is the credential, so "refresh" means
				// re-signing with a fresh timestamp, which fn does on retry.
				slog.Warn("venuea: unauthorized, refreshing credentials and retrying once")
				continue
			}
			return fmt.Errorf("unauthorized after credential refresh")
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			slog.Warn("venuea: rate limited by API", "attempt", attempt+1)
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
			b, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return fmt.Errorf("client error %d: %s", resp.StatusCode, string(b))
		}
		if resp.StatusCode == http.StatusNoContent || out == nil {
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
