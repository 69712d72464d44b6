package venueb

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"

	"github.com/alejandrodnm/orion-arb/internal/domain"
	"github.com/alejandrodnm/orion-arb/internal/ports"
)

const (
	gammaMarketsPath = "/markets"
	booksPath        = "/books"

	usdcEAddress = "0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174"
)

// tokenPair records the YES/NO token IDs behind one gamma market, learned
// from ListMarkets and consulted by FetchQuote/PlaceOrder.
type tokenPair struct {
	yesToken string
	noToken  string
	negRisk  bool
}

// VenueClient implements ports.VenueClient against the blockchain CLOB.
type VenueClient struct {
	auth      *AuthClient
	rpcClient *ethclient.Client

	mu     sync.Mutex
	tokens map[string]tokenPair // nativeID (conditionId) -> tokens
}

// New constructs a VenueClient. privateKeyHex funds and signs orders;
// rpcURL is used for on-chain USDC balance reads.
func New(clobBase, gammaBase, privateKeyHex, rpcURL string) (*VenueClient, error) {
	auth, err := NewAuthClient(clobBase, gammaBase, privateKeyHex)
	if err != nil {
		return nil, err
	}
	rpc, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("venueb: dial rpc: %w", err)
	}
	return &VenueClient{
		auth:      auth,
		rpcClient: rpc,
		tokens:    make(map[string]tokenPair),
	}, nil
}

func (v *VenueClient) Venue() domain.Venue { return domain.VenueB }

// dateLayouts are the end-date formats Gamma has been observed to send,
// tried in order; matches the format tolerance of
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

type gammaMarket struct {
	ConditionID       string      `json:"conditionId"`
	Question          string      `json:"question"`
	Description       string      `json:"description"`
	EndDateISO        string      `json:"endDateIso"`
	Volume            json.Number `json:"volume"`
	Liquidity         json.Number `json:"liquidity"`
	Active            bool        `json:"active"`
	Closed            bool        `json:"closed"`
	NegRisk           bool        `json:"negRisk"`
	ClobTokenIDsRaw    string     `json:"clobTokenIds"`
	OutcomesRaw        string     `json:"outcomes"`
}

// ListMarkets fetches active markets from Gamma and records their YES/NO
// token IDs for later quote and order calls.
func (v *VenueClient) ListMarkets(ctx context.Context, limit int) ([]domain.Listing, error) {
	url := fmt.Sprintf("%s%s?active=true&closed=false&limit=%d", v.auth.gammaBase, gammaMarketsPath, limit)

	var resp []gammaMarket
	if err := v.auth.get(ctx, v.auth.gammaLimiter, url, &resp); err != nil {
		return nil, fmt.Errorf("venueb.ListMarkets: %w", err)
	}

	listings := make([]domain.Listing, 0, len(resp))
	v.mu.Lock()
	defer v.mu.Unlock()

	for _, gm := range resp {
		if err := domain.ValidateMarketID(gm.ConditionID); err != nil {
			continue
		}
		var tokenIDs []string
		if err := json.Unmarshal([]byte(gm.ClobTokenIDsRaw), &tokenIDs); err != nil || len(tokenIDs) < 2 {
			continue
		}
		var outcomes []string
		_ = json.Unmarshal([]byte(gm.OutcomesRaw), &outcomes)

		yesIdx, noIdx := 0, 1
		for i, o := range outcomes {
			switch strings.ToLower(o) {
			case "yes":
				yesIdx = i
			case "no":
				noIdx = i
			}
		}
		if yesIdx >= len(tokenIDs) || noIdx >= len(tokenIDs) {
			continue
		}

		v.tokens[gm.ConditionID] = tokenPair{
			yesToken: tokenIDs[yesIdx],
			noToken:  tokenIDs[noIdx],
			negRisk:  gm.NegRisk,
		}

		status := domain.StatusOpen
		if gm.Closed {
			status = domain.StatusClosed
		}

		var resTime *time.Time
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, gm.EndDateISO); err == nil {
				tt := t.UTC()
				resTime = &tt
				break
			}
		}

		volume, _ := gm.Volume.Float64()

		listings = append(listings, domain.Listing{
			Venue:          domain.VenueB,
			NativeID:       gm.ConditionID,
			Question:       gm.Question,
			Description:    gm.Description,
			ResolutionTime: resTime,
			Status:         status,
			VolumeToDate:   volume,
			Raw: map[string]any{
				"neg_risk": gm.NegRisk,
			},
		})
	}

	slog.Debug("venueb markets listed", "count", len(listings))
	return listings, nil
}

type bookEntryRaw struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

type orderBookResponse struct {
	AssetID string         `json:"asset_id"`
	Bids    []bookEntryRaw `json:"bids"`
	Asks    []bookEntryRaw `json:"asks"`
}

// FetchQuote returns the best ask price for the requested side of nativeID
// (the market must have been seen by a prior ListMarkets call).
func (v *VenueClient) FetchQuote(ctx context.Context, nativeID string, side domain.Side) (*float64, error) {
	if err := domain.ValidateMarketID(nativeID); err != nil {
		return nil, fmt.Errorf("venueb.FetchQuote: %w", err)
	}
	if err := domain.ValidateSide(side); err != nil {
		return nil, fmt.Errorf("venueb.FetchQuote: %w", err)
	}

	v.mu.Lock()
	tp, ok := v.tokens[nativeID]
	v.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("venueb.FetchQuote: unknown market %s", nativeID)
	}

	tokenID := tp.yesToken
	if side == domain.SideNo {
		tokenID = tp.noToken
	}

	url := fmt.Sprintf("%s%s?token_id=%s", v.auth.clobBase, booksPath, tokenID)
	var resp orderBookResponse
	if err := v.auth.get(ctx, v.auth.booksLimiter, url, &resp); err != nil {
		return nil, fmt.Errorf("venueb.FetchQuote: %w", err)
	}

	if len(resp.Asks) == 0 {
		return nil, nil
	}
	price := domain.ParsePrice(resp.Asks[0].Price)
	return &price, nil
}

type clobOrderRequest struct {
	Order     clobOrderBody `json:"order"`
	Owner     string        `json:"owner"`
	OrderType string        `json:"orderType"`
}

type clobOrderBody struct {
	Salt          json.Number `json:"salt"`
	Maker         string      `json:"maker"`
	Signer        string      `json:"signer"`
	Taker         string      `json:"taker"`
	TokenID       string      `json:"tokenId"`
	MakerAmount   string      `json:"makerAmount"`
	TakerAmount   string      `json:"takerAmount"`
	Expiration    string      `json:"expiration"`
	Nonce         string      `json:"nonce"`
	FeeRateBps    string      `json:"feeRateBps"`
	Side          string      `json:"side"`
	SignatureType int         `json:"signatureType"`
	Signature     string      `json:"signature"`
}

type clobOrderResponse struct {
	ErrorMsg     string `json:"errorMsg"`
	OrderID      string `json:"orderID"`
	TakingAmount string `json:"takingAmount"`
	MakingAmount string `json:"makingAmount"`
	Status       string `json:"status"`
	Success      bool   `json:"success"`
}

// PlaceOrder signs and submits a limit order against the token backing
// req.NativeID/req.Side.
func (v *VenueClient) PlaceOrder(ctx context.Context, req ports.PlaceOrderRequest) (domain.OrderResult, error) {
	if err := domain.ValidateMarketID(req.NativeID); err != nil {
		return domain.OrderResult{}, fmt.Errorf("venueb.PlaceOrder: %w", err)
	}
	if err := domain.ValidateSide(req.Side); err != nil {
		return domain.OrderResult{}, fmt.Errorf("venueb.PlaceOrder: %w", err)
	}
	if err := domain.ValidateOrderType(req.OrderType); err != nil {
		return domain.OrderResult{}, fmt.Errorf("venueb.PlaceOrder: %w", err)
	}

	if err := v.auth.EnsureCreds(ctx); err != nil {
		return domain.OrderResult{}, fmt.Errorf("venueb.PlaceOrder: creds: %w", err)
	}

	v.mu.Lock()
	tp, ok := v.tokens[req.NativeID]
	v.mu.Unlock()
	if !ok {
		return domain.OrderResult{}, fmt.Errorf("venueb.PlaceOrder: unknown market %s", req.NativeID)
	}
	tokenID := tp.yesToken
	if req.Side == domain.SideNo {
		tokenID = tp.noToken
	}

	price, _ := req.LimitPrice.Float64()
	size, _ := req.Quantity.Float64()
	if err := domain.ValidatePrice(price, 0, 0); err != nil {
		return domain.OrderResult{}, fmt.Errorf("venueb.PlaceOrder: %w", err)
	}

	signed, err := v.auth.buildSignedOrder(tokenID, price, size, tp.negRisk)
	if err != nil {
		return domain.OrderResult{}, fmt.Errorf("venueb.PlaceOrder: sign: %w", err)
	}

	body := clobOrderRequest{
		Order: clobOrderBody{
			Salt:          json.Number(signed.Order.Salt.String()),
			Maker:         signed.Order.Maker.Hex(),
			Signer:        signed.Order.Signer.Hex(),
			Taker:         signed.Order.Taker.Hex(),
			TokenID:       tokenID,
			MakerAmount:   signed.Order.MakerAmount.String(),
			TakerAmount:   signed.Order.TakerAmount.String(),
			Expiration:    signed.Order.Expiration.String(),
			Nonce:         signed.Order.Nonce.String(),
			FeeRateBps:    signed.Order.FeeRateBps.String(),
			Side:          "BUY",
			SignatureType: int(signed.Order.SignatureType.Int64()),
			Signature:     "0x" + hex.EncodeToString(signed.Signature),
		},
		Owner:     v.auth.creds.APIKey,
		OrderType: "GTC",
	}

	var resp clobOrderResponse
	if err := v.auth.doL2(ctx, http.MethodPost, "/order", body, &resp); err != nil {
		return domain.OrderResult{}, fmt.Errorf("venueb.PlaceOrder: post: %w", err)
	}
	if !resp.Success || resp.ErrorMsg != "" {
		return domain.OrderResult{}, fmt.Errorf("venueb.PlaceOrder: clob error: %s", resp.ErrorMsg)
	}

	filled := parseUSDCAmount(resp.TakingAmount)
	status := domain.OrderOpen
	switch strings.ToUpper(resp.Status) {
	case "MATCHED", "FILLED", "COMPLETE":
		status = domain.OrderFilled
	}

	return domain.OrderResult{
		OrderID:   resp.OrderID,
		Status:    status,
		FilledQty: filled,
	}, nil
}

type clobOpenOrder struct {
	ID           string `json:"id"`
	OriginalSize string `json:"original_size"`
	SizeMatched  string `json:"size_matched"`
	Status       string `json:"status"`
}

// OrderStatus polls the CLOB for an order's current fill state.
func (v *VenueClient) OrderStatus(ctx context.Context, orderID string) (domain.OrderResult, error) {
	if err := v.auth.EnsureCreds(ctx); err != nil {
		return domain.OrderResult{}, fmt.Errorf("venueb.OrderStatus: creds: %w", err)
	}

	var resp clobOpenOrder
	if err := v.auth.doL2(ctx, http.MethodGet, "/order/"+orderID, nil, &resp); err != nil {
		return domain.OrderResult{}, fmt.Errorf("venueb.OrderStatus: %w", err)
	}

	filled := parseUSDCAmount(resp.SizeMatched)
	status := domain.OrderOpen
	upper := strings.ToUpper(resp.Status)
	switch {
	case strings.Contains(upper, "MATCHED"), upper == "FILLED", upper == "COMPLETE":
		status = domain.OrderFilled
	case strings.Contains(upper, "CANCEL"):
		status = domain.OrderCancelled
	}

	return domain.OrderResult{OrderID: orderID, Status: status, FilledQty: filled}, nil
}

// CancelOrder cancels a single open order by ID.
func (v *VenueClient) CancelOrder(ctx context.Context, orderID string) (bool, error) {
	if err := v.auth.EnsureCreds(ctx); err != nil {
		return false, fmt.Errorf("venueb.CancelOrder: creds: %w", err)
	}
	if err := v.auth.doL2(ctx, http.MethodDelete, "/order/"+orderID, nil, nil); err != nil {
		return false, fmt.Errorf("venueb.CancelOrder: %w", err)
	}
	return true, nil
}

var balanceOfABI abi.ABI

func init() {
	var err error
	balanceOfABI, err = abi.JSON(strings.NewReader(`[{
		"name":"balanceOf","type":"function",
		"inputs":[{"name":"account","type":"address"}],
		"outputs":[{"name":"","type":"uint256"}]
	}]`))
	if err != nil {
		panic("venueb: balanceOf abi: " + err.Error())
	}
}

// Balance returns the on-chain USDC.e balance funding this venue's orders.
func (v *VenueClient) Balance(ctx context.Context) (decimal.Decimal, error) {
	callData, err := balanceOfABI.Pack("balanceOf", v.auth.address)
	if err != nil {
		return decimal.Zero, fmt.Errorf("venueb.Balance: pack: %w", err)
	}

	token := common.HexToAddress(usdcEAddress)
	result, err := v.rpcClient.CallContract(ctx, ethereum.CallMsg{To: &token, Data: callData}, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("venueb.Balance: rpc call: %w", err)
	}

	vals, err := balanceOfABI.Unpack("balanceOf", result)
	if err != nil || len(vals) == 0 {
		return decimal.Zero, fmt.Errorf("venueb.Balance: unpack: %w", err)
	}

	raw := vals[0].(*big.Int)
	return decimal.NewFromBigInt(raw, -6), nil
}

func parseUSDCAmount(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(n, -6)
}
