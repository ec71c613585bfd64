package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// startRuntimeWatcher writes the initial file and starts a watcher on it.
func startRuntimeWatcher(t *testing.T, initial string, opts ...WatcherOption[Runtime]) (*Watcher[Runtime], string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "myle.toml")
	writeConfig(t, path, initial)

	opts = append([]WatcherOption[Runtime]{WithDebounce[Runtime](50 * time.Millisecond)}, opts...)
	watcher := NewConfigWatcher(path, LoadRuntime, newTestLogger(), opts...)
	if err := watcher.Start(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := watcher.Stop(); err != nil {
			t.Errorf("watcher.Stop failed: %v", err)
		}
	})

	// Wait for watcher to initialize
	time.Sleep(100 * time.Millisecond)
	return watcher, path
}

func TestConfigWatcher_Reload(t *testing.T) {
	received := make(chan Runtime, 1)
	watcher, path := startRuntimeWatcher(t, "[logging]\nlevel = \"info\"\n")
	watcher.OnReload(func(rt Runtime) {
		select {
		case received <- rt:
		default:
		}
	})

	writeConfig(t, path, "[logging]\nlevel = \"debug\"\n\n[updates]\ndisabled = true\n")

	select {
	case rt := <-received:
		if rt.Logging.Level != "debug" || !rt.UpdatesDisabled {
			t.Errorf("got %+v, want level=debug and updates disabled", rt)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for config reload")
	}
}

func TestConfigWatcher_ReplaceByRename(t *testing.T) {
	received := make(chan Runtime, 1)
	watcher, path := startRuntimeWatcher(t, "[updates]\ndisabled = false\n")
	watcher.OnReload(func(rt Runtime) {
		select {
		case received <- rt:
		default:
		}
	})

	// Editors that save atomically write a sibling and rename it over the original.
	tmp := path + ".swp"
	writeConfig(t, tmp, "[updates]\ndisabled = true\n")
	if err := os.Rename(tmp, path); err != nil {
		t.Fatal(err)
	}

	select {
	case rt := <-received:
		if !rt.UpdatesDisabled {
			t.Errorf("expected updates disabled after rename, got %+v", rt)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for reload after rename")
	}
}

func TestConfigWatcher_IgnoresOtherFiles(t *testing.T) {
	var count atomic.Int32
	watcher, path := startRuntimeWatcher(t, "[logging]\nlevel = \"info\"\n")
	watcher.OnReload(func(_ Runtime) {
		count.Add(1)
	})

	writeConfig(t, filepath.Join(filepath.Dir(path), "other.toml"), "x = 1\n")
	time.Sleep(200 * time.Millisecond)

	if got := count.Load(); got != 0 {
		t.Errorf("expected no reload for sibling file, got %d", got)
	}
}

func TestConfigWatcher_Unsubscribe(t *testing.T) {
	var count1, count2 atomic.Int32
	watcher, path := startRuntimeWatcher(t, "[logging]\nlevel = \"info\"\n")
	watcher.OnReload(func(_ Runtime) {
		count1.Add(1)
	})
	unsub2 := watcher.OnReload(func(_ Runtime) {
		count2.Add(1)
	})

	writeConfig(t, path, "[logging]\nlevel = \"warn\"\n")
	time.Sleep(200 * time.Millisecond)

	unsub2()

	writeConfig(t, path, "[logging]\nlevel = \"error\"\n")
	time.Sleep(200 * time.Millisecond)

	if got := count1.Load(); got != 2 {
		t.Errorf("handler1: expected 2 calls, got %d", got)
	}
	if got := count2.Load(); got != 1 {
		t.Errorf("handler2: expected 1 call, got %d", got)
	}
}

func TestConfigWatcher_ErrorHandler(t *testing.T) {
	errorReceived := make(chan error, 1)
	configReceived := make(chan Runtime, 1)

	watcher, path := startRuntimeWatcher(t, "[logging]\nlevel = \"info\"\n",
		WithErrorHandler[Runtime](func(err error) {
			select {
			case errorReceived <- err:
			default:
			}
		}),
	)
	watcher.OnReload(func(rt Runtime) {
		select {
		case configReceived <- rt:
		default:
		}
	})

	writeConfig(t, path, "invalid toml [[[")

	select {
	case <-errorReceived:
	case <-configReceived:
		t.Fatal("config handler should not be called on error")
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for error handler")
	}
}

func TestConfigWatcher_Debounce(t *testing.T) {
	var count atomic.Int32
	var last atomic.Value

	watcher, path := startRuntimeWatcher(t, "[logging]\nlevel = \"info\"\n",
		WithDebounce[Runtime](200*time.Millisecond),
	)
	watcher.OnReload(func(rt Runtime) {
		count.Add(1)
		last.Store(rt.Logging.Modules["downloads"])
	})

	// Rapid changes within debounce window
	for i := 1; i <= 5; i++ {
		writeConfig(t, path, fmt.Sprintf("[logging]\ndownloads = \"level%d\"\n", i))
		time.Sleep(50 * time.Millisecond)
	}
	time.Sleep(500 * time.Millisecond)

	if got := count.Load(); got != 1 {
		t.Errorf("expected 1 debounced call, got %d", got)
	}
	if got, _ := last.Load().(string); got != "level5" {
		t.Errorf("expected final value level5, got %q", got)
	}
}

func TestConfigWatcher_ConcurrentSubscribe(t *testing.T) {
	watcher, path := startRuntimeWatcher(t, "[logging]\nlevel = \"info\"\n")

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unsub := watcher.OnReload(func(_ Runtime) {})
			time.Sleep(time.Millisecond)
			unsub()
		}()
	}

	for i := range 5 {
		writeConfig(t, path, fmt.Sprintf("[logging]\napi = \"level%d\"\n", i))
		time.Sleep(20 * time.Millisecond)
	}

	wg.Wait()
}

func TestConfigWatcher_Stop(t *testing.T) {
	var count atomic.Int32
	path := filepath.Join(t.TempDir(), "myle.toml")
	writeConfig(t, path, "[logging]\nlevel = \"info\"\n")

	watcher := NewConfigWatcher(path, LoadRuntime, newTestLogger(), WithDebounce[Runtime](50*time.Millisecond))
	watcher.OnReload(func(_ Runtime) {
		count.Add(1)
	})
	if err := watcher.Start(); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)

	if err := watcher.Stop(); err != nil {
		t.Fatal(err)
	}

	writeConfig(t, path, "[logging]\nlevel = \"debug\"\n")
	time.Sleep(200 * time.Millisecond)

	if got := count.Load(); got != 0 {
		t.Errorf("expected 0 calls after stop, got %d", got)
	}
}

func TestConfigWatcher_RemoveThenRecreate(t *testing.T) {
	received := make(chan Runtime, 1)
	watcher, path := startRuntimeWatcher(t, "[logging]\nlevel = \"info\"\n")
	watcher.OnReload(func(rt Runtime) {
		select {
		case received <- rt:
		default:
		}
	})

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	time.Sleep(150 * time.Millisecond)
	select {
	case rt := <-received:
		t.Fatalf("removal should not reload, got %+v", rt)
	default:
	}

	writeConfig(t, path, "[logging]\nlevel = \"warn\"\n")
	select {
	case rt := <-received:
		if rt.Logging.Level != "warn" {
			t.Errorf("level = %q, want warn", rt.Logging.Level)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for reload after recreate")
	}
}

func TestConfigWatcher_StartTwice(t *testing.T) {
	watcher, _ := startRuntimeWatcher(t, "[logging]\nlevel = \"info\"\n")
	if err := watcher.Start(); err == nil {
		t.Error("second Start should fail")
	}
}
