package repository

import (
	"errors"
	"fmt"

	"github.com/okian/dupscan/internal/domain/errkind"
)

// Sentinel kinds for repository errors. The not-found sentinels match
// errkind.ErrNotFound so callers can classify them without importing this package.
var (
	ErrNotFound      = fmt.Errorf("donor %w", errkind.ErrNotFound)
	ErrJobNotFound   = fmt.Errorf("scan job %w", errkind.ErrNotFound)
	ErrMissingID     = errors.New("donor id is required")
	ErrMissingTenant = errors.New("tenant id is required")
)
