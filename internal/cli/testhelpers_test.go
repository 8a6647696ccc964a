package cli

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func runCommand(t *testing.T, args []string) (stdout string, stderr string, err error) {
	t.Helper()

	cmd := NewRootCmd()
	outBuf := new(bytes.Buffer)
	errBuf := new(bytes.Buffer)

	cmd.SetOut(outBuf)
	cmd.SetErr(errBuf)
	cmd.SetArgs(args)

	err = cmd.Execute()
	return outBuf.String(), errBuf.String(), err
}

// newTestApp returns an app with no ambient credential and no prompt.
func newTestApp(env map[string]string) *appState {
	return &appState{
		transcriberFn: newRelayTranscriber,
		getenv: func(key string) string {
			return env[key]
		},
	}
}

func writeAudioFile(t *testing.T, dir, name string, size int) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte{0x42}, size), 0o644))
	return path
}

type fakeRelay struct {
	*httptest.Server
	hits     atomic.Int32
	lastAuth atomic.Value
}

func newFakeRelay(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) *fakeRelay {
	t.Helper()

	relay := &fakeRelay{}
	relay.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		relay.hits.Add(1)
		relay.lastAuth.Store(r.Header.Get("Authorization"))
		handler(w, r)
	}))
	t.Cleanup(relay.Close)
	return relay
}
