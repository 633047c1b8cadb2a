package clob

import "errors"

var (
	ErrInvalidInput      = errors.New("clob: invalid input")
	ErrMarketExpired     = errors.New("clob: market has expired")
	ErrInvalidVault      = errors.New("clob: vault account mismatch")
	ErrOrderBookFull     = errors.New("clob: order book is full")
	ErrEventQueueFull    = errors.New("clob: event queue is full")
	ErrSelfTrade         = errors.New("clob: order would self trade")
	ErrWouldMatch        = errors.New("clob: post only order would match")
	ErrWouldNotFill      = errors.New("clob: fill or kill order cannot be fully filled")
	ErrOracleUnavailable = errors.New("clob: oracle unavailable")
	ErrOracleStale       = errors.New("clob: oracle price is stale")
	ErrPriceOutOfRange   = errors.New("clob: limit price deviates too far from oracle price")
	ErrNumericOverflow   = errors.New("clob: numeric overflow")
	ErrTransferFailed    = errors.New("clob: token transfer failed")
	ErrInsufficientFunds = errors.New("clob: insufficient free balance")
	ErrNotFound          = errors.New("clob: not found")
	ErrDuplicateMarket   = errors.New("clob: market already exists")
	ErrSequenceGap       = errors.New("clob: trade log sequence gap")
)
