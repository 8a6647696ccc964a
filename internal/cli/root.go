package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fmueller/voxscribe/internal/logging"
	"github.com/fmueller/voxscribe/internal/relay"
	"github.com/fmueller/voxscribe/internal/transcribe"
	"github.com/fmueller/voxscribe/internal/version"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/spf13/cobra"
)

const credentialEnv = "OPENAI_API_KEY"

type appState struct {
	verbose    bool
	jsonLogs   bool
	noProgress bool

	logger *zap.Logger

	serveFn       func(ctx context.Context, cfg relay.Config) error
	transcriberFn func(relayURL string) transcribe.Transcriber
	readSecretFn  func(prompt string) (string, error)
	getenv        func(string) string
}

func NewRootCmd() *cobra.Command {
	app := &appState{getenv: os.Getenv}
	app.serveFn = app.serveRelay
	app.transcriberFn = newRelayTranscriber
	app.readSecretFn = readSecretFromTerminal

	cmd := &cobra.Command{
		Use:           "voxscribe",
		Short:         "Transcribe audio files through a local speech-to-text relay",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version.Resolve(),
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := logging.New(logging.Options{Verbose: app.verbose, JSON: app.jsonLogs, Component: cmd.Name()})
			if err != nil {
				return fmt.Errorf("initialize logger: %w", err)
			}
			app.logger = logger
			return nil
		},
	}

	cmd.SetVersionTemplate("{{.Name}} v{{.Version}}\n")

	cmd.AddCommand(newServeCmd(app))
	cmd.AddCommand(newTranscribeCmd(app))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func bindLoggingFlags(cmd *cobra.Command, app *appState) {
	cmd.Flags().BoolVar(&app.verbose, "verbose", app.verbose, "Enable verbose logs")
	cmd.Flags().BoolVar(&app.jsonLogs, "json", app.jsonLogs, "Enable JSON logging")
}

func bindProgressFlag(cmd *cobra.Command, app *appState) {
	cmd.Flags().BoolVar(&app.noProgress, "no-progress", app.noProgress, "Disable progress indicators")
}

func (a *appState) log() *zap.Logger {
	if a.logger == nil {
		return zap.NewNop()
	}
	return a.logger
}

func (a *appState) progressEnabled() bool {
	if a.noProgress {
		return false
	}
	return term.IsTerminal(int(os.Stderr.Fd()))
}

func (a *appState) env(key string) string {
	if a.getenv == nil {
		return os.Getenv(key)
	}
	return a.getenv(key)
}

// resolveCredential picks the API key from the flag, then the environment,
// then an interactive prompt. The key is never written anywhere.
func (a *appState) resolveCredential(flagValue string) (string, error) {
	if key := strings.TrimSpace(flagValue); key != "" {
		return key, nil
	}
	if key := strings.TrimSpace(a.env(credentialEnv)); key != "" {
		return key, nil
	}
	if a.readSecretFn == nil {
		return "", nil
	}

	key, err := a.readSecretFn("OpenAI API key: ")
	if err != nil {
		return "", fmt.Errorf("read API key: %w", err)
	}
	return strings.TrimSpace(key), nil
}

func readSecretFromTerminal(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", nil
	}

	fmt.Fprint(os.Stderr, prompt)
	secret, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(secret), nil
}
