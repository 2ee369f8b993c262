package queue

import (
	"errors"
	"fmt"

	"github.com/okian/dupscan/internal/domain/errkind"
)

// Sentinel kinds for queue errors.
var (
	ErrQueueFull   = fmt.Errorf("scan queue full: %w", errkind.ErrBackpressure)
	ErrQueueClosed = errors.New("scan queue closed")
)
