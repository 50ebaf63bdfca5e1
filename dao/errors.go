package dao

import "errors"

// Database errors
var (
	ErrNoRows           = errors.New("sql: no rows in result set")
	ErrMissingUserID    = errors.New("missing user id field")
	ErrMissingOrderType = errors.New("missing order type field")
	ErrNoItems          = errors.New("order has no items")
	ErrTerminalOrder    = errors.New("order is in a terminal state")
	ErrNotApprovable    = errors.New("order is not awaiting approval")
)
