package venuea

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alejandrodnm/orion-arb/internal/domain"
	"github.com/alejandrodnm/orion-arb/internal/ports"
)

// VenueClient implements ports.VenueClient against the regulated exchange.
type VenueClient struct {
	c *Client
}

// New constructs a venuea.VenueClient.
func New(baseURL, apiKey, privateKeyPEM string) (*VenueClient, error) {
	c, err := NewClient(baseURL, apiKey, privateKeyPEM)
	if err != nil {
		return nil, err
	}
	return &VenueClient{c: c}, nil
}

func (v *VenueClient) Venue() domain.Venue { return domain.VenueA }

// dateLayouts are the close-time formats the exchange has been observed to
// send, tried in order; matches the format tolerance of
// original_source/src/arbitrage/matcher.py::parse_date.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05.999999999Z",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"01/02/2006",
	"02/01/2006",
}

type marketsResponse struct {
	Markets []rawMarket `json:"markets"`
}

type rawMarket struct {
	Ticker      string  `json:"ticker"`
	Title       string  `json:"title"`
	Subtitle    string  `json:"subtitle"`
	CloseTime   string  `json:"close_time"`
	Status      string  `json:"status"`
	Volume      float64 `json:"volume"`
	OpenInterest float64 `json:"open_interest"`
}

// ListMarkets fetches open markets, limit-capped, from the exchange.
func (v *VenueClient) ListMarkets(ctx context.Context, limit int) ([]domain.Listing, error) {
	query := fmt.Sprintf("limit=%d&status=open", limit)

	var resp marketsResponse
	if err := v.c.get(ctx, "/markets", query, &resp); err != nil {
		return nil, fmt.Errorf("venuea.ListMarkets: %w", err)
	}

	listings := make([]domain.Listing, 0, len(resp.Markets))
	for _, m := range resp.Markets {
		if err := domain.ValidateTicker(m.Ticker); err != nil {
			continue
		}
		status := domain.StatusOpen
		switch m.Status {
		case "closed":
			status = domain.StatusClosed
		case "settled", "finalized":
			status = domain.StatusSettled
		}

		var resTime *time.Time
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, m.CloseTime); err == nil {
				tt := t.UTC()
				resTime = &tt
				break
			}
		}

		listings = append(listings, domain.Listing{
			Venue:            domain.VenueA,
			NativeID:         m.Ticker,
			Question:         m.Title,
			Description:      m.Subtitle,
			ResolutionTime:   resTime,
			Status:           status,
			VolumeToDate:     m.Volume,
			RestingLiquidity: m.OpenInterest,
		})
	}
	return listings, nil
}

type orderbookResponse struct {
	Orderbook struct {
		Yes [][2]float64 `json:"yes"`
		No  [][2]float64 `json:"no"`
	} `json:"orderbook"`
}

// FetchQuote returns the best ask (in dollars) for nativeID's requested side.
func (v *VenueClient) FetchQuote(ctx context.Context, nativeID string, side domain.Side) (*float64, error) {
	if err := domain.ValidateTicker(nativeID); err != nil {
		return nil, fmt.Errorf("venuea.FetchQuote: %w", err)
	}
	if err := domain.ValidateSide(side); err != nil {
		return nil, fmt.Errorf("venuea.FetchQuote: %w", err)
	}

	var resp orderbookResponse
	if err := v.c.get(ctx, "/markets/"+nativeID+"/orderbook", "", &resp); err != nil {
		return nil, fmt.Errorf("venuea.FetchQuote: %w", err)
	}

	levels := resp.Orderbook.Yes
	if side == domain.SideNo {
		levels = resp.Orderbook.No
	}
	if len(levels) == 0 {
		return nil, nil
	}

	price := levels[0][0] / 100
	return &price, nil
}

type orderRequest struct {
	Ticker        string `json:"ticker"`
	ClientOrderID string `json:"client_order_id"`
	Side          string `json:"side"`
	Action        string `json:"action"`
	Count         int64  `json:"count"`
	Type          string `json:"type"`
	YesPrice      *int   `json:"yes_price,omitempty"`
	NoPrice       *int   `json:"no_price,omitempty"`
}

type orderResponse struct {
	Order struct {
		OrderID     string `json:"order_id"`
		Status      string `json:"status"`
		FilledCount int64  `json:"filled_count"`
	} `json:"order"`
}

// PlaceOrder submits a limit order priced in whole cents.
func (v *VenueClient) PlaceOrder(ctx context.Context, req ports.PlaceOrderRequest) (domain.OrderResult, error) {
	if err := domain.ValidateTicker(req.NativeID); err != nil {
		return domain.OrderResult{}, fmt.Errorf("venuea.PlaceOrder: %w", err)
	}
	if err := domain.ValidateSide(req.Side); err != nil {
		return domain.OrderResult{}, fmt.Errorf("venuea.PlaceOrder: %w", err)
	}
	if err := domain.ValidateOrderType(req.OrderType); err != nil {
		return domain.OrderResult{}, fmt.Errorf("venuea.PlaceOrder: %w", err)
	}
	if err := domain.ValidateQuantity(req.Quantity.IntPart()); err != nil {
		return domain.OrderResult{}, fmt.Errorf("venuea.PlaceOrder: %w", err)
	}

	priceCents, _ := req.LimitPrice.Mul(decimal.NewFromInt(100)).Round(0).Float64()
	if err := domain.ValidateKalshiPriceCents(int(priceCents)); err != nil {
		return domain.OrderResult{}, fmt.Errorf("venuea.PlaceOrder: %w", err)
	}
	count := req.Quantity.IntPart()

	body := orderRequest{
		Ticker:        req.NativeID,
		ClientOrderID: fmt.Sprintf("%s_%d", req.NativeID, time.Now().UnixNano()),
		Side:          string(req.Side),
		Action:        string(req.Action),
		Count:         count,
		Type:          string(req.OrderType),
	}
	cents := int(priceCents)
	if req.Side == domain.SideYes {
		body.YesPrice = &cents
	} else {
		body.NoPrice = &cents
	}

	var resp orderResponse
	if err := v.c.post(ctx, "POST", "/portfolio/orders", body, &resp); err != nil {
		return domain.OrderResult{}, fmt.Errorf("venuea.PlaceOrder: %w", err)
	}

	return domain.OrderResult{
		OrderID:   resp.Order.OrderID,
		Status:    normalizeStatus(resp.Order.Status),
		FilledQty: decimal.NewFromInt(resp.Order.FilledCount),
	}, nil
}

// OrderStatus polls the current fill state of a previously placed order.
func (v *VenueClient) OrderStatus(ctx context.Context, orderID string) (domain.OrderResult, error) {
	var resp orderResponse
	if err := v.c.get(ctx, "/portfolio/orders/"+orderID, "", &resp); err != nil {
		return domain.OrderResult{}, fmt.Errorf("venuea.OrderStatus: %w", err)
	}
	return domain.OrderResult{
		OrderID:   orderID,
		Status:    normalizeStatus(resp.Order.Status),
		FilledQty: decimal.NewFromInt(resp.Order.FilledCount),
	}, nil
}

// CancelOrder cancels an open order by ID.
func (v *VenueClient) CancelOrder(ctx context.Context, orderID string) (bool, error) {
	if err := v.c.post(ctx, "DELETE", "/portfolio/orders/"+orderID, nil, nil); err != nil {
		return false, fmt.Errorf("venuea.CancelOrder: %w", err)
	}
	return true, nil
}

type balanceResponse struct {
	Balance int64 `json:"balance"`
}

// Balance returns the venue's cash balance in dollars.
func (v *VenueClient) Balance(ctx context.Context) (decimal.Decimal, error) {
	var resp balanceResponse
	if err := v.c.get(ctx, "/portfolio/balance", "", &resp); err != nil {
		return decimal.Zero, fmt.Errorf("venuea.Balance: %w", err)
	}
	return decimal.New(resp.Balance, -2), nil
}

func normalizeStatus(s string) domain.OrderStatus {
	switch s {
	case "filled", "complete", "executed":
		return domain.OrderFilled
	case "canceled", "cancelled":
		return domain.OrderCancelled
	case "rejected":
		return domain.OrderRejected
	case "partial":
		return domain.OrderPartial
	default:
		return domain.OrderOpen
	}
}
