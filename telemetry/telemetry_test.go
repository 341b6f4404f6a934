package telemetry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pkg.world.dev/world-engine/scene/telemetry"
)

func TestDisabledTelemetry(t *testing.T) {
	tm, err := telemetry.New(false, false)
	require.NoError(t, err)
	assert.False(t, tm.Tracing())
	require.NoError(t, tm.Shutdown())
	require.NoError(t, tm.Shutdown())
}
