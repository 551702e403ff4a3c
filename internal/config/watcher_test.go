package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/MrWong99/nexusvoice/internal/config"
)

const watcherValidYAML = credentialsYAML + `
server:
  log_level: info
`

const watcherUpdatedYAML = credentialsYAML + `
server:
  log_level: debug
  listen_addr: ":6000"
`

const watcherInvalidYAML = `
server:
  log_level: bananas
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %q: %v", path, err)
	}
}

// revise replaces the file content and pushes its mtime forward so the next
// poll sees a new revision even on filesystems with coarse timestamps.
func revise(t *testing.T, path, content string) {
	t.Helper()
	if content != "" {
		writeFile(t, path, content)
	}
	future := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
}

// changeLog records ChangeFunc invocations.
type changeLog struct {
	mu    sync.Mutex
	diffs []config.ConfigDiff
	news  []*config.Config
	fired chan struct{}
}

func newChangeLog() *changeLog { return &changeLog{fired: make(chan struct{}, 8)} }

func (c *changeLog) record(_, new *config.Config, d config.ConfigDiff) {
	c.mu.Lock()
	c.diffs = append(c.diffs, d)
	c.news = append(c.news, new)
	c.mu.Unlock()
	c.fired <- struct{}{}
}

func (c *changeLog) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.diffs)
}

// startWatcher writes content to a fresh config file and watches it with
// environment overrides disabled.
func startWatcher(t *testing.T, content string, log *changeLog) (*config.Watcher, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nexusvoice.yaml")
	writeFile(t, path, content)

	var fn config.ChangeFunc
	if log != nil {
		fn = log.record
	}
	w, err := config.NewWatcher(path, fn, config.WithInterval(20*time.Millisecond), config.WithGetenv(nil))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	t.Cleanup(w.Stop)
	return w, path
}

func TestWatcher_InitialLoad(t *testing.T) {
	t.Parallel()
	w, _ := startWatcher(t, watcherValidYAML, nil)
	if cfg := w.Current(); cfg == nil || cfg.Server.LogLevel != config.LogInfo {
		t.Fatalf("Current() = %+v", cfg)
	}
}

func TestWatcher_DetectsChange(t *testing.T) {
	t.Parallel()
	log := newChangeLog()
	w, path := startWatcher(t, watcherValidYAML, log)

	revise(t, path, watcherUpdatedYAML)
	select {
	case <-log.fired:
	case <-time.After(2 * time.Second):
		t.Fatal("no change reported")
	}

	log.mu.Lock()
	d, cfg := log.diffs[0], log.news[0]
	log.mu.Unlock()
	if !d.LogLevelChanged || d.NewLogLevel != config.LogDebug {
		t.Errorf("log level diff = %+v", d)
	}
	if len(d.RestartRequired) != 1 || d.RestartRequired[0] != "server.listen_addr" {
		t.Errorf("restart required = %v", d.RestartRequired)
	}
	if cfg.Server.ListenAddr != ":6000" || w.Current() != cfg {
		t.Errorf("Current() not swapped to the new revision")
	}
}

func TestWatcher_IgnoresUnusableRevisions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string // empty: touch only
	}{
		{name: "invalid value", content: watcherInvalidYAML},
		{name: "same content", content: watcherValidYAML},
		{name: "touch only"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			log := newChangeLog()
			w, path := startWatcher(t, watcherValidYAML, log)
			before := w.Current()

			revise(t, path, tt.content)
			time.Sleep(200 * time.Millisecond)

			if n := log.count(); n != 0 {
				t.Errorf("callback fired %d times", n)
			}
			if w.Current() != before {
				t.Error("current config replaced")
			}
		})
	}
}

func TestWatcher_InitialLoadFails(t *testing.T) {
	t.Parallel()
	if _, err := config.NewWatcher(filepath.Join(t.TempDir(), "missing.yaml"), nil); err == nil {
		t.Fatal("expected error for a missing file")
	}
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	t.Parallel()
	w, _ := startWatcher(t, watcherValidYAML, nil)
	w.Stop()
	w.Stop()
}

func TestLevelReloader(t *testing.T) {
	var lv slog.LevelVar
	lv.Set(slog.LevelInfo)
	reload := config.LevelReloader(&lv)

	reload(nil, nil, config.ConfigDiff{LogLevelChanged: true, NewLogLevel: config.LogError})
	if lv.Level() != slog.LevelError {
		t.Errorf("level = %v, want ERROR", lv.Level())
	}
	reload(nil, nil, config.ConfigDiff{RestartRequired: []string{"cache"}})
	if lv.Level() != slog.LevelError {
		t.Errorf("level changed without a log level diff: %v", lv.Level())
	}
}
