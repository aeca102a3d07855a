package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidSignature    = errors.New("invalid order signature")
	ErrNotYetListed        = errors.New("order not yet listed")
	ErrExpired             = errors.New("order expired")
	ErrFillExceeded        = errors.New("order fill exceeded")
	ErrPredicateMismatch   = errors.New("orders are not complementary")
	ErrInsufficientValue   = errors.New("insufficient value for trade")
	ErrAssetTransferFailed = errors.New("asset transfer failed")
	ErrArithmeticOverflow  = errors.New("arithmetic overflow")
	ErrBlockOrder          = errors.New("block height regressed")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrInvalidParams       = errors.New("invalid parameters")
	ErrLockHeld            = errors.New("lock already held")
)
