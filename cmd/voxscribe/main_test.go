package main

import (
	"errors"
	"testing"

	"github.com/fmueller/voxscribe/internal/cli"
	"github.com/stretchr/testify/require"
)

func TestShouldPrintUsageHint(t *testing.T) {
	t.Parallel()

	require.True(t, shouldPrintUsageHint(errors.New("unknown command \"bad\" for \"voxscribe\"")))
	require.True(t, shouldPrintUsageHint(errors.New("unknown flag: --oops")))
	require.True(t, shouldPrintUsageHint(errors.New("requires at least 1 arg(s), only received 0")))
	require.True(t, shouldPrintUsageHint(errors.New(`invalid argument "x" for "--port" flag`)))
	require.False(t, shouldPrintUsageHint(errors.New("2 of 3 files failed to transcribe")))
	require.False(t, shouldPrintUsageHint(errors.New("API key is required; pass --api-key or set OPENAI_API_KEY")))
	require.False(t, shouldPrintUsageHint(nil))
}

func TestHelpHintTarget(t *testing.T) {
	t.Parallel()

	root := cli.NewRootCmd()
	require.Equal(t, "voxscribe", helpHintTarget(nil, nil))
	require.Equal(t, "voxscribe", helpHintTarget(root, nil))
	require.Equal(t, "voxscribe", helpHintTarget(root, []string{"--badflag"}))
	require.Equal(t, "voxscribe", helpHintTarget(root, []string{"badcmd"}))
	require.Equal(t, "voxscribe transcribe", helpHintTarget(root, []string{"transcribe"}))
	require.Equal(t, "voxscribe serve", helpHintTarget(root, []string{"serve", "--port"}))
}
