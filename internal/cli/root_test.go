package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRootCommandRegistersCoreSubcommands(t *testing.T) {
	t.Parallel()

	cmd := NewRootCmd()

	names := make([]string, 0, len(cmd.Commands()))
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	require.Subset(t, names, []string{"serve", "transcribe", "version"})

	serve, _, err := cmd.Find([]string{"serve"})
	require.NoError(t, err)
	require.NotNil(t, serve.Flags().Lookup("port"))
	require.Equal(t, "whisper-1", serve.Flags().Lookup("model").DefValue)
	require.Equal(t, "https://api.openai.com/v1/audio/transcriptions", serve.Flags().Lookup("upstream-url").DefValue)
	require.Equal(t, "32", serve.Flags().Lookup("max-upload-mb").DefValue)

	tr, _, err := cmd.Find([]string{"transcribe"})
	require.NoError(t, err)
	require.Equal(t, "http://localhost:3001", tr.Flags().Lookup("relay-url").DefValue)
	require.Equal(t, "it", tr.Flags().Lookup("language").DefValue)
	require.Equal(t, "", tr.Flags().Lookup("api-key").DefValue)
	require.Equal(t, "false", tr.Flags().Lookup("no-export").DefValue)
	require.NotNil(t, tr.Flags().Lookup("no-progress"))
	require.NotNil(t, tr.Flags().Lookup("verbose"))
}

func TestRootHelpParsesSuccessfully(t *testing.T) {
	t.Parallel()

	cmd := NewRootCmd()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs([]string{"--help"})

	err := cmd.Execute()
	require.NoError(t, err)
	require.Contains(t, out.String(), "serve")
	require.Contains(t, out.String(), "transcribe")
	require.Contains(t, out.String(), "version")
}

func TestSubcommandHelpParsesSuccessfully(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		args     []string
		contains string
	}{
		{name: "serve", args: []string{"serve", "--help"}, contains: "Run the transcription relay"},
		{name: "transcribe", args: []string{"transcribe", "--help"}, contains: "Transcribe audio files through the relay"},
		{name: "version", args: []string{"version", "--help"}, contains: "Print the version number"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cmd := NewRootCmd()
			out := new(bytes.Buffer)
			cmd.SetOut(out)
			cmd.SetErr(out)
			cmd.SetArgs(tt.args)

			err := cmd.Execute()
			require.NoError(t, err)
			require.Contains(t, out.String(), tt.contains)
		})
	}
}

func TestResolveCredentialOrder(t *testing.T) {
	t.Parallel()

	app := newTestApp(map[string]string{credentialEnv: " sk-env "})
	app.readSecretFn = func(string) (string, error) { return "sk-prompt", nil }

	key, err := app.resolveCredential(" sk-flag ")
	require.NoError(t, err)
	require.Equal(t, "sk-flag", key)

	key, err = app.resolveCredential("")
	require.NoError(t, err)
	require.Equal(t, "sk-env", key)

	app.getenv = func(string) string { return "" }
	key, err = app.resolveCredential("")
	require.NoError(t, err)
	require.Equal(t, "sk-prompt", key)

	app.readSecretFn = nil
	key, err = app.resolveCredential("")
	require.NoError(t, err)
	require.Empty(t, key)
}
