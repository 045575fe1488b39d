// scenario_test.go - runs the demo lifecycle end to end.
package main

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestScenario(t *testing.T) {
	require.NoError(t, runScenario(zerolog.Nop()))
}
