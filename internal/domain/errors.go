package domain

import "errors"

// Sentinel errors, compared by identity (errors.Is) rather than by
// inspecting a wrapped message.
var (
	// ErrCircuitOpen is returned by the Circuit Breaker once a latch
	// condition has fired; it persists until ManualReset.
	ErrCircuitOpen = errors.New("circuit breaker is open")

	// ErrInsufficientCapital names a refused capital allocation. The
	// Capital Manager reports refusals through the false result of
	// CanOpenPosition/AllocateCapital and does not return this error.
	ErrInsufficientCapital = errors.New("insufficient available capital")

	// ErrNoMatch names the case where no listing scores above threshold
	// for an input listing. The Event Matcher reports it by leaving that
	// listing unpaired and does not return this error.
	ErrNoMatch = errors.New("no matching listing above threshold")

	// ErrPartialFill names an Executor outcome where exactly one leg
	// filled and an unwind was attempted. ExecuteArbitrage reports it
	// through ExecutionResult (Success false, UnwindAttempted true) and
	// does not return this error.
	ErrPartialFill = errors.New("partial fill: one leg executed")
)
