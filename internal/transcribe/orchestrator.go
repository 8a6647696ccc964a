package transcribe

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fmueller/voxscribe/internal/batch"
	"go.uber.org/zap"
)

const (
	// MaxUploadBytes is the largest payload the provider accepts (25 MiB).
	MaxUploadBytes  int64 = 25 * 1024 * 1024
	DefaultLanguage       = "it"
)

var (
	ErrMissingCredential = errors.New("API key is required")
	ErrItemNotFound      = errors.New("batch item not found")
)

const unreachableMessage = "cannot reach the relay server; check that it is running"

type Options struct {
	Language       string
	MaxUploadBytes int64
	Logger         *zap.Logger
}

// Orchestrator drives batch items through transcription against a relay.
// Different items may be in flight at the same time.
type Orchestrator struct {
	items    *batch.Manager
	client   Transcriber
	language string
	maxBytes int64
	logger   *zap.Logger

	credMu     sync.RWMutex
	credential string

	wg sync.WaitGroup
}

func NewOrchestrator(items *batch.Manager, client Transcriber, opts Options) *Orchestrator {
	if opts.Language == "" {
		opts.Language = DefaultLanguage
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = MaxUploadBytes
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Orchestrator{
		items:    items,
		client:   client,
		language: opts.Language,
		maxBytes: opts.MaxUploadBytes,
		logger:   opts.Logger,
	}
}

// SetCredential replaces the session credential. It is kept in memory only.
func (o *Orchestrator) SetCredential(credential string) {
	o.credMu.Lock()
	o.credential = strings.TrimSpace(credential)
	o.credMu.Unlock()
}

func (o *Orchestrator) HasCredential() bool {
	return o.currentCredential() != ""
}

func (o *Orchestrator) currentCredential() string {
	o.credMu.RLock()
	defer o.credMu.RUnlock()
	return o.credential
}

// Transcribe starts one attempt for the item with id and returns without
// waiting for it. The guard errors ErrMissingCredential and ErrItemNotFound
// leave the batch untouched. An oversized payload is recorded on the item
// and yields an already completed task.
func (o *Orchestrator) Transcribe(ctx context.Context, id string) (*Task, error) {
	credential := o.currentCredential()
	if credential == "" {
		return nil, ErrMissingCredential
	}

	item, ok := o.items.Get(id)
	if !ok {
		return nil, ErrItemNotFound
	}

	if size := item.Size(); size > o.maxBytes {
		message := fmt.Sprintf("%s is %.2f MB and exceeds the %d MB limit; compress the file or shorten the audio",
			item.DisplayName, item.SizeMB, o.maxBytes/(1024*1024))
		applied := o.items.Update(id, batch.ErrorPatch(message))
		o.logger.Warn("file too large; skipping transcription", zap.String("item", item.DisplayName), zap.Int64("bytes", size))
		return completedTask(id, errors.New(message), applied), nil
	}

	attempt, ok := o.items.Begin(id)
	if !ok {
		return nil, ErrItemNotFound
	}

	task := newTask(id, attempt)
	o.wg.Add(1)
	go o.run(ctx, item, credential, task)
	return task, nil
}

// Wait blocks until every dispatched attempt has settled.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

func (o *Orchestrator) run(ctx context.Context, item batch.Item, credential string, task *Task) {
	defer o.wg.Done()

	var (
		patch batch.Patch
		err   error
	)
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("transcription aborted: %v", r)
			patch = batch.ErrorPatch(err.Error())
		}
		applied := o.items.Finish(task.ItemID, task.Attempt, patch)
		if !applied {
			o.logger.Debug("discarding transcription result", zap.String("item", item.DisplayName), zap.Uint64("attempt", task.Attempt))
		}
		task.complete(err, applied)
	}()

	o.logger.Info("transcribing...", zap.String("item", item.DisplayName), zap.Float64("size_mb", item.SizeMB), zap.String("language", o.language))
	started := time.Now()

	var text string
	text, err = o.request(ctx, item, credential)
	if err != nil {
		o.logger.Warn("transcription failed", zap.String("item", item.DisplayName), zap.Duration("elapsed", time.Since(started)), zap.Error(err))
		patch = batch.ErrorPatch(failureMessage(err))
		return
	}

	o.logger.Info("transcription finished", zap.String("item", item.DisplayName), zap.Duration("elapsed", time.Since(started)))
	patch = batch.TranscriptPatch(text)
}

func (o *Orchestrator) request(ctx context.Context, item batch.Item, credential string) (string, error) {
	audio, err := item.Source.Open()
	if err != nil {
		return "", fmt.Errorf("open %s: %w", item.DisplayName, err)
	}
	defer audio.Close()

	return o.client.Transcribe(ctx, Request{
		Credential: credential,
		Language:   o.language,
		FileName:   item.DisplayName,
		Audio:      audio,
	})
}

func failureMessage(err error) string {
	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		return upstream.Message
	}
	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	return unreachableMessage
}
