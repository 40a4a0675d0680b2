package config

import (
	"context"
	"math/rand"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	logx "tgnotify/pkg/logx"
)

// Watcher re-resolves the configuration whenever one of the loader's files changes
// and hands each new snapshot to OnChange. Snapshots are never mutated after publish.
type Watcher struct {
	Loader   *Loader
	OnChange func(*Resolution)
	// Debounce coalesces editor write bursts. Defaults to 250ms.
	Debounce time.Duration

	mu   sync.Mutex
	last Effective
	seen bool
}

// Prime records res as the current snapshot so an identical reload is not republished.
func (w *Watcher) Prime(res *Resolution) {
	if res == nil {
		return
	}
	w.mu.Lock()
	w.last = res.Config.Clone()
	w.seen = true
	w.mu.Unlock()
}

// Watch blocks until ctx is done. A broken fsnotify watcher is recreated with
// a small jittered backoff. Each time the watch is (re)registered the files are
// reloaded once, so changes made before Watch started are not lost.
func (w *Watcher) Watch(ctx context.Context) error {
	log := w.Loader.logger()

	files := map[string]struct{}{}
	dirs := map[string]struct{}{}
	for _, p := range []string{w.Loader.StructuredPath, w.Loader.EnvPath} {
		if strings.TrimSpace(p) == "" {
			continue
		}
		files[strings.ToLower(filepath.Base(p))] = struct{}{}
		dirs[filepath.Dir(p)] = struct{}{}
	}
	if len(dirs) == 0 {
		<-ctx.Done()
		return nil
	}

	debounceFor := w.Debounce
	if debounceFor <= 0 {
		debounceFor = 250 * time.Millisecond
	}

	// Reloads run on this goroutine only, so snapshots publish in order.
	// Stop and Reset never leave a stale tick behind (go1.23 timers).
	debounceTimer := time.NewTimer(debounceFor)
	debounceTimer.Stop()
	defer debounceTimer.Stop()
	debounce := func() { debounceTimer.Reset(debounceFor) }

	const (
		restartBackoffBase = 250 * time.Millisecond
		restartBackoffMax  = 5 * time.Second
	)
	backoff := restartBackoffBase
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	wait := func() bool {
		d := backoff + time.Duration(rng.Int63n(int64(backoff/2)+1))
		if backoff < restartBackoffMax {
			backoff = min(backoff*2, restartBackoffMax)
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(d):
			return true
		}
	}

	for {
		if ctx.Err() != nil {
			return nil
		}

		fw, err := fsnotify.NewWatcher()
		if err != nil {
			log.Warn("config watch init failed", logx.Err(err))
			if !wait() {
				return nil
			}
			continue
		}
		added := 0
		for dir := range dirs {
			if err := fw.Add(dir); err != nil {
				log.Warn("config watch add failed", logx.String("dir", dir), logx.Err(err))
				continue
			}
			added++
		}
		if added == 0 {
			_ = fw.Close()
			if !wait() {
				return nil
			}
			continue
		}
		backoff = restartBackoffBase
		log.Debug("config watcher started", logx.Int("dirs", added))
		// Catch edits made before the watch was registered.
		w.reload(log)

		broken := false
		for !broken {
			select {
			case <-ctx.Done():
				_ = fw.Close()
				return nil
			case <-debounceTimer.C:
				w.reload(log)
			case ev, ok := <-fw.Events:
				if !ok {
					broken = true
					break
				}
				if _, match := files[strings.ToLower(filepath.Base(ev.Name))]; !match {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 {
					debounce()
				}
			case err, ok := <-fw.Errors:
				if !ok {
					broken = true
					break
				}
				if err == nil {
					continue
				}
				log.Warn("config watch error; forcing reload", logx.Err(err))
				debounce()
			}
		}

		_ = fw.Close()
		log.Warn("config watcher stopped; restarting")
		if !wait() {
			return nil
		}
	}
}

func (w *Watcher) reload(log logx.Logger) {
	res := w.Loader.Load()

	w.mu.Lock()
	unchanged := w.seen && reflect.DeepEqual(w.last, res.Config)
	if !unchanged {
		w.last = res.Config.Clone()
		w.seen = true
	}
	w.mu.Unlock()

	if unchanged {
		log.Debug("config unchanged; skipping publish")
		return
	}
	log.Info("config reloaded",
		logx.Int("chat_count", len(res.Config.ChatIDs)),
		logx.Bool("enabled", res.Config.Enabled),
	)
	if w.OnChange != nil {
		w.OnChange(res)
	}
}
