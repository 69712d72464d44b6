// Package executor dispatches both legs of a sized Opportunity
// concurrently against their respective venue clients, and unwinds any
// single-legged fill at the 0.50 mid-price rather than leave naked
// directional exposure outstanding.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alejandrodnm/orion-arb/internal/domain"
	"github.com/alejandrodnm/orion-arb/internal/ports"
)

// midPrice is the hardcoded unwind price: a mid-book flatten rather
// than a marketable limit, accepting the small additional cost in
// exchange for certainty of execution.
const midPrice = "0.50"

// Executor implements ports.Executor.
type Executor struct {
	venueA           ports.VenueClient
	venueB           ports.VenueClient
	mode             domain.ExecutionMode
	slippageTolerance float64
	log              *slog.Logger
}

// New builds an Executor that routes venue-A legs to venueA and all other
// legs to venueB.
func New(venueA, venueB ports.VenueClient, mode domain.ExecutionMode, slippageTolerance float64, log *slog.Logger) *Executor {
	return &Executor{venueA: venueA, venueB: venueB, mode: mode, slippageTolerance: slippageTolerance, log: log}
}

func (e *Executor) clientFor(v domain.Venue) ports.VenueClient {
	if v == domain.VenueA {
		return e.venueA
	}
	return e.venueB
}

// ExecuteArbitrage places both legs of opp. In paper mode it returns a
// synthetic filled result without touching any venue. In live mode it
// dispatches both legs concurrently and, on a single-leg failure,
// immediately unwinds the filled leg at the mid-price.
func (e *Executor) ExecuteArbitrage(ctx context.Context, opp domain.Opportunity, positionID string) domain.ExecutionResult {
	if e.mode == domain.ModePaper {
		return domain.ExecutionResult{
			PositionID:  positionID,
			Success:     true,
			Leg1OrderID: fmt.Sprintf("paper_%s_leg1", positionID),
			Leg2OrderID: fmt.Sprintf("paper_%s_leg2", positionID),
			Leg1Filled:  true,
			Leg2Filled:  true,
			ActualCost:  opp.PositionSizeQuote,
			ExecutedAt:  time.Now(),
		}
	}

	leg1Venue, leg2Venue := opp.LegVenues()

	leg1Req := ports.PlaceOrderRequest{
		NativeID:   nativeIDFor(opp, leg1Venue),
		Side:       domain.SideYes,
		Action:     domain.ActionBuy,
		Quantity:   decimal.NewFromInt(opp.ContractsLeg1),
		LimitPrice: slippageAdjusted(opp.PriceLeg1, e.slippageTolerance),
		OrderType:  domain.OrderTypeLimit,
	}
	leg2Req := ports.PlaceOrderRequest{
		NativeID:   nativeIDFor(opp, leg2Venue),
		Side:       domain.SideNo,
		Action:     domain.ActionBuy,
		Quantity:   opp.SizeLeg2,
		LimitPrice: slippageAdjusted(opp.PriceLeg2, e.slippageTolerance),
		OrderType:  domain.OrderTypeLimit,
	}
	if leg1Venue != domain.VenueA {
		leg1Req.Quantity = opp.SizeLeg2
		leg2Req.Quantity = decimal.NewFromInt(opp.ContractsLeg1)
	}

	var leg1Result, leg2Result domain.OrderResult
	var leg1Err, leg2Err error

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		leg1Result, leg1Err = e.clientFor(leg1Venue).PlaceOrder(ctx, leg1Req)
	}()
	go func() {
		defer wg.Done()
		leg2Result, leg2Err = e.clientFor(leg2Venue).PlaceOrder(ctx, leg2Req)
	}()
	wg.Wait()

	leg1Filled := leg1Err == nil && leg1Result.Status.IsFilled()
	leg2Filled := leg2Err == nil && leg2Result.Status.IsFilled()

	result := domain.ExecutionResult{
		PositionID:  positionID,
		Leg1OrderID: leg1Result.OrderID,
		Leg2OrderID: leg2Result.OrderID,
		Leg1Filled:  leg1Filled,
		Leg2Filled:  leg2Filled,
		ExecutedAt:  time.Now(),
	}

	switch {
	case leg1Filled && leg2Filled:
		result.Success = true
		result.ActualCost = opp.PositionSizeQuote

	case leg1Filled && !leg2Filled:
		e.log.Error("partial fill, unwinding leg1", "position_id", positionID, "leg2_err", leg2Err)
		result.Success = false
		result.ErrorMessage = errMsg(leg1Err, leg2Err)
		result.UnwindAttempted = true
		result.UnwindSucceeded = e.unwind(ctx, leg1Venue, leg1Req)

	case leg2Filled && !leg1Filled:
		e.log.Error("partial fill, unwinding leg2", "position_id", positionID, "leg1_err", leg1Err)
		result.Success = false
		result.ErrorMessage = errMsg(leg1Err, leg2Err)
		result.UnwindAttempted = true
		result.UnwindSucceeded = e.unwind(ctx, leg2Venue, leg2Req)

	default:
		result.Success = false
		result.ErrorMessage = errMsg(leg1Err, leg2Err)
	}

	return result
}

// unwind submits a limit sell at the fixed mid-price (0.50) to flatten a
// single filled leg. The venue, native ID, side and quantity come from the
// original request; only the action flips from buy to sell.
func (e *Executor) unwind(ctx context.Context, venue domain.Venue, filledReq ports.PlaceOrderRequest) bool {
	unwindReq := ports.PlaceOrderRequest{
		NativeID:   filledReq.NativeID,
		Side:       filledReq.Side,
		Action:     domain.ActionSell,
		Quantity:   filledReq.Quantity,
		LimitPrice: decimal.RequireFromString(midPrice),
		OrderType:  domain.OrderTypeLimit,
	}
	res, err := e.clientFor(venue).PlaceOrder(ctx, unwindReq)
	if err != nil {
		e.log.Error("unwind order failed", "venue", venue, "err", err)
		return false
	}
	return res.Status.IsFilled() || res.Status == domain.OrderOpen
}

// CheckOrderStatus polls the given venue's client for orderID's
// current lifecycle state.
func (e *Executor) CheckOrderStatus(ctx context.Context, venue domain.Venue, orderID string) (domain.OrderStatus, error) {
	res, err := e.clientFor(venue).OrderStatus(ctx, orderID)
	if err != nil {
		return "", err
	}
	return res.Status, nil
}

func nativeIDFor(opp domain.Opportunity, venue domain.Venue) string {
	if venue == domain.VenueA {
		return opp.PairedEvent.ListingA.NativeID
	}
	return opp.PairedEvent.ListingB.NativeID
}

func slippageAdjusted(price decimal.Decimal, tolerance float64) decimal.Decimal {
	adjusted := price.Mul(decimal.NewFromFloat(1 + tolerance))
	cap := decimal.NewFromFloat(0.99)
	if adjusted.GreaterThan(cap) {
		return cap
	}
	return adjusted
}

func errMsg(leg1Err, leg2Err error) string {
	return errors.Join(leg1Err, leg2Err).Error()
}
