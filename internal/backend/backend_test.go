package backend

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]string{"": Auto, " CPU ": CPU, "cuda": CUDA, "Auto": Auto} {
		got, err := Normalize(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := Normalize("metal")
	require.ErrorContains(t, err, `unknown backend "metal"`)
}

func TestOpenCPU(t *testing.T) {
	t.Parallel()

	s, err := Open(context.Background(), CPU, Options{Workers: 2})
	require.NoError(t, err)
	defer s.Close()
	require.Equal(t, CPU, s.Info().Backend)
	require.Positive(t, s.Limits().MaxWorkgroupStorageSize)
}

func TestOpenAutoAlwaysSucceeds(t *testing.T) {
	t.Parallel()

	s, err := Open(context.Background(), Auto, Options{})
	require.NoError(t, err)
	defer s.Close()
	require.True(t, Has(s.Info().Backend))
	require.Contains(t, Available(), CPU)
}
