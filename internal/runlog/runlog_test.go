package runlog

import (
	"bytes"
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestRunLogger_PropagatesRunID(t *testing.T) {
	var buf bytes.Buffer
	logger, runID := NewRunLogger(zerolog.New(&buf))
	require.NoError(t, uuid.Validate(runID))

	ctx := WithLogger(context.Background(), logger)
	l := FromContext(ctx)
	l.Info().Msg("hello")

	require.Contains(t, buf.String(), runID)
	require.Contains(t, buf.String(), `"run_id"`)
}

func TestFromContext_Empty(t *testing.T) {
	l := FromContext(context.Background())
	require.Equal(t, zerolog.Disabled, l.GetLevel())
}
