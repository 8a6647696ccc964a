package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fmueller/voxscribe/internal/batch"
	"github.com/fmueller/voxscribe/internal/export"
	"github.com/fmueller/voxscribe/internal/transcribe"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type transcribeOptions struct {
	relayURL  string
	apiKey    string
	language  string
	outputDir string
	noExport  bool
}

func newTranscribeCmd(app *appState) *cobra.Command {
	opts := &transcribeOptions{
		relayURL:  transcribe.DefaultRelayURL,
		language:  transcribe.DefaultLanguage,
		outputDir: ".",
	}

	cmd := &cobra.Command{
		Use:   "transcribe <audio-file>...",
		Short: "Transcribe audio files through the relay",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.runBatch(cmd.Context(), cmd.OutOrStdout(), *opts, args)
		},
	}

	bindLoggingFlags(cmd, app)
	bindProgressFlag(cmd, app)
	cmd.Flags().StringVar(&opts.relayURL, "relay-url", opts.relayURL, "Base URL of the transcription relay")
	cmd.Flags().StringVar(&opts.apiKey, "api-key", "", "Provider API key (defaults to $"+credentialEnv+")")
	cmd.Flags().StringVar(&opts.language, "language", opts.language, "Language hint sent with every file")
	cmd.Flags().StringVar(&opts.outputDir, "output-dir", opts.outputDir, "Directory for exported transcripts")
	cmd.Flags().BoolVar(&opts.noExport, "no-export", false, "Print transcripts without writing files")

	return cmd
}

func newRelayTranscriber(relayURL string) transcribe.Transcriber {
	return transcribe.NewRelayClient(relayURL)
}

// runBatch adds every file to a fresh batch, transcribes all items
// concurrently and reports each one once all attempts have settled.
func (a *appState) runBatch(ctx context.Context, out io.Writer, opts transcribeOptions, paths []string) error {
	sources := make([]batch.Source, 0, len(paths))
	for _, path := range paths {
		src, err := batch.NewFileSource(path)
		if err != nil {
			return err
		}
		sources = append(sources, src)
	}

	credential, err := a.resolveCredential(opts.apiKey)
	if err != nil {
		return err
	}

	transcriberFn := a.transcriberFn
	if transcriberFn == nil {
		transcriberFn = newRelayTranscriber
	}

	items := batch.NewManager()
	unwatch := items.Watch(func(ev batch.Event) {
		a.log().Debug("batch item changed",
			zap.String("event", string(ev.Kind)),
			zap.String("item", ev.Item.DisplayName),
			zap.Bool("transcribing", ev.Item.Transcribing),
		)
	})
	defer unwatch()

	orch := transcribe.NewOrchestrator(items, transcriberFn(opts.relayURL), transcribe.Options{
		Language: sanitizeLanguage(opts.language),
		Logger:   a.log(),
	})
	orch.SetCredential(credential)

	added := items.AddFiles(sources...)

	progress := startBatchProgress(a.progressEnabled(), "Transcribing", len(added))
	started := time.Now()

	tasks := make([]*transcribe.Task, 0, len(added))
	for _, item := range added {
		task, err := orch.Transcribe(ctx, item.ID)
		if err != nil {
			progress.stop()
			orch.Wait()
			if errors.Is(err, transcribe.ErrMissingCredential) {
				return fmt.Errorf("%w; pass --api-key or set %s", err, credentialEnv)
			}
			return err
		}
		tasks = append(tasks, task)
	}

	for _, task := range tasks {
		<-task.Done()
		progress.advance()
	}
	progress.stop()

	return a.report(out, items.Items(), opts, time.Since(started))
}

func (a *appState) report(out io.Writer, items []batch.Item, opts transcribeOptions, elapsed time.Duration) error {
	failed := 0
	for _, item := range items {
		fmt.Fprintf(out, "== %s (%.2f MB) ==\n", item.DisplayName, item.SizeMB)

		if !item.HasTranscript {
			failed++
			fmt.Fprintf(out, "error: %s\n\n", item.LastError)
			continue
		}

		fmt.Fprintln(out, item.Transcript)
		fmt.Fprintln(out)
		if isBlankTranscript(item.Transcript) {
			a.log().Warn(noSpeechHint(), zap.String("item", item.DisplayName))
		}

		if opts.noExport {
			continue
		}

		artifact, err := export.Transcript(item)
		if err != nil {
			return err
		}
		path, err := export.Save(opts.outputDir, artifact)
		if err != nil {
			return fmt.Errorf("export %s: %w", item.DisplayName, err)
		}
		a.log().Info("transcript saved", zap.String("item", item.DisplayName), zap.String("path", path))
	}

	a.log().Info("batch finished",
		zap.Int("files", len(items)),
		zap.Int("failed", failed),
		zap.Duration("elapsed", elapsed),
	)

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed to transcribe", failed, len(items))
	}
	return nil
}

func sanitizeLanguage(input string) string {
	trimmed := strings.TrimSpace(strings.ToLower(input))
	if trimmed == "" {
		return transcribe.DefaultLanguage
	}
	return trimmed
}
