package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWatcherPublishesChangedConfig(t *testing.T) {
	dir := t.TempDir()
	l := newTestLoader(dir)
	writeFile(t, l.EnvPath, "TELEGRAM_BOT_TOKEN=one\n")

	got := make(chan *Resolution, 4)
	w := &Watcher{
		Loader:   l,
		Debounce: 20 * time.Millisecond,
		OnChange: func(r *Resolution) { got <- r },
	}
	w.Prime(l.Load())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Watch(ctx) }()
	defer func() {
		cancel()
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("watcher did not stop")
		}
	}()

	// fsnotify needs a moment to register the directory.
	deadline := time.After(10 * time.Second)
	tick := time.NewTicker(200 * time.Millisecond)
	defer tick.Stop()
	for {
		writeFile(t, l.EnvPath, "TELEGRAM_BOT_TOKEN=two\n")
		select {
		case r := <-got:
			require.Equal(t, "two", r.Config.BotToken)
			return
		case <-tick.C:
		case <-deadline:
			t.Fatal("no reload published")
		}
	}
}

func TestWatcherSkipsUnchangedReload(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	l := newTestLoader(dir)
	writeFile(t, filepath.Join(dir, ".env"), "TELEGRAM_BOT_TOKEN=same\n")

	calls := 0
	w := &Watcher{Loader: l, OnChange: func(*Resolution) { calls++ }}
	w.Prime(l.Load())
	w.reload(l.logger())
	require.Equal(t, 0, calls)

	writeFile(t, filepath.Join(dir, ".env"), "TELEGRAM_BOT_TOKEN=other\n")
	w.reload(l.logger())
	require.Equal(t, 1, calls)
}

func startWatcher(t *testing.T, w *Watcher) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Watch(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("watcher did not stop")
		}
	})
}

func TestWatcherCatchesEditBeforeStart(t *testing.T) {
	dir := t.TempDir()
	l := newTestLoader(dir)
	writeFile(t, l.EnvPath, "TELEGRAM_BOT_TOKEN=one\n")

	got := make(chan *Resolution, 4)
	w := &Watcher{Loader: l, OnChange: func(r *Resolution) { got <- r }}
	w.Prime(l.Load())

	// Edited after the snapshot was taken, before Watch runs.
	writeFile(t, l.EnvPath, "TELEGRAM_BOT_TOKEN=two\n")
	startWatcher(t, w)

	select {
	case r := <-got:
		require.Equal(t, "two", r.Config.BotToken)
	case <-time.After(5 * time.Second):
		t.Fatal("edit before start was not published")
	}
}

func TestWatcherPublishesSeriallyInOrder(t *testing.T) {
	dir := t.TempDir()
	l := newTestLoader(dir)
	writeFile(t, l.EnvPath, "TELEGRAM_BOT_TOKEN=tok0\n")

	var inflight, overlap atomic.Int32
	var last atomic.Value
	w := &Watcher{
		Loader:   l,
		Debounce: 2 * time.Millisecond,
		OnChange: func(r *Resolution) {
			if inflight.Add(1) > 1 {
				overlap.Add(1)
			}
			time.Sleep(15 * time.Millisecond)
			last.Store(r.Config.BotToken)
			inflight.Add(-1)
		},
	}
	w.Prime(l.Load())
	startWatcher(t, w)

	const final = 30
	for i := 1; i <= final; i++ {
		writeFile(t, l.EnvPath, fmt.Sprintf("TELEGRAM_BOT_TOKEN=tok%d\n", i))
		time.Sleep(5 * time.Millisecond)
	}

	want := fmt.Sprintf("tok%d", final)
	require.Eventually(t, func() bool {
		v, _ := last.Load().(string)
		return v == want
	}, 10*time.Second, 20*time.Millisecond)
	require.Zero(t, overlap.Load())
}
