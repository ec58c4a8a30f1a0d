package chain

import (
	"errors"
	"fmt"
)

var (
	// ErrStorageNotFound is returned when a plain storage value holds nothing.
	ErrStorageNotFound = errors.New("storage value not found")
	// ErrBlockNotFound is returned when no block exists at a number or hash.
	ErrBlockNotFound = errors.New("block not found")
	// ErrUnknownCall is returned when the runtime does not know a call.
	ErrUnknownCall = errors.New("unknown runtime call")
)

// TxError reports an extrinsic that ended in a terminal status other than the one awaited.
type TxError struct {
	Call   string
	Status string
}

func (e *TxError) Error() string {
	return fmt.Sprintf("extrinsic %s ended with status %s", e.Call, e.Status)
}
