// Copyright (c) 2025 The Meridian developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package reverts defines the error categories surfaced by staking operations.
// Callers match categories with errors.Is.
package reverts

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound a referenced validator, staker or record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized the caller is not permitted to perform the operation.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidAmount an amount or rate is zero, negative, or out of bounds.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrInvalidTiming the operation is not allowed at the current point of the epoch schedule.
	ErrInvalidTiming = errors.New("invalid timing")
	// ErrUpstreamFailure a collaborator (ledger, allow-list, store) failed.
	ErrUpstreamFailure = errors.New("upstream failure")
)

// NotFound wraps ErrNotFound with context.
func NotFound(format string, args ...any) error {
	return wrap(ErrNotFound, format, args...)
}

// Unauthorized wraps ErrUnauthorized with context.
func Unauthorized(format string, args ...any) error {
	return wrap(ErrUnauthorized, format, args...)
}

// InvalidAmount wraps ErrInvalidAmount with context.
func InvalidAmount(format string, args ...any) error {
	return wrap(ErrInvalidAmount, format, args...)
}

// InvalidTiming wraps ErrInvalidTiming with context.
func InvalidTiming(format string, args ...any) error {
	return wrap(ErrInvalidTiming, format, args...)
}

// Upstream wraps a collaborator failure as ErrUpstreamFailure, keeping the cause.
func Upstream(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrUpstreamFailure, err)
}

func wrap(category error, format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), category)
}

// IsRevert reports whether the error is a domain rejection rather than
// an infrastructure failure.
func IsRevert(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInvalidTiming)
}

// IsUpstream reports whether the error is a collaborator failure.
func IsUpstream(err error) bool {
	return errors.Is(err, ErrUpstreamFailure)
}
