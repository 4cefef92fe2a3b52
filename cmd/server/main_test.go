package main

import (
	"os"
	"testing"

	"ragmemory/internal/config"
	"ragmemory/internal/di"

	"github.com/stretchr/testify/require"
)

// TestContainerWiresFromEnv is a smoke test for main's startup path: load
// config, build the container, confirm it wires cleanly end to end.
func TestContainerWiresFromEnv(t *testing.T) {
	_ = os.Setenv("OPENAI_API_KEY", "test-key")
	defer func() { _ = os.Unsetenv("OPENAI_API_KEY") }()

	cfg, err := config.LoadConfig()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	container, err := di.NewContainer(cfg)
	require.NoError(t, err)
	require.NotNil(t, container)
	defer func() { _ = container.Close() }()
}
