package db

import (
	"errors"
	"fmt"
)

// ErrKeyNotFound signals a cache miss on Get.
var ErrKeyNotFound = errors.New("key not found")

// Op identifies the failed store operation.
type Op string

// Store operations.
const (
	OpPing        Op = "ping"
	OpCreateIndex Op = "create_index"
	OpUpsert      Op = "upsert"
	OpSearch      Op = "search"
	OpGet         Op = "get"
	OpSet         Op = "set"
)

// Error wraps a backend failure with the operation that produced it.
type Error struct {
	Op  Op
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("db %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
