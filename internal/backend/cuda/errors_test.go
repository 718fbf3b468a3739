//go:build cuda

package cuda

import (
	"errors"
	"strings"
	"testing"

	"github.com/samcharles93/seedscan/internal/accel"
)

func TestDeviceErrorWrapsBoth(t *testing.T) {
	cause := errors.New("boom")
	err := deviceError("launch", cause)
	if !errors.Is(err, accel.ErrDevice) {
		t.Fatalf("expected ErrDevice, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("missing wrapped cause: %v", err)
	}
	if !strings.Contains(err.Error(), "cuda launch") {
		t.Fatalf("unexpected message: %v", err)
	}
}
