//go:build cuda

package cuda

import (
	"fmt"

	"github.com/samcharles93/seedscan/internal/accel"
)

func deviceError(op string, err error) error {
	return fmt.Errorf("%w: cuda %s: %w", accel.ErrDevice, op, err)
}
