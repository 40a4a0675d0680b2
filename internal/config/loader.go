package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"

	logx "tgnotify/pkg/logx"
)

const (
	DefaultStructuredPath = "config/telegram_config.json"
	DefaultEnvPath        = ".env"
)

// Source describes one configuration origin after loading.
type Source struct {
	Name     SourceName
	Path     string
	Found    bool
	Raw      *RawConfig
	Warnings []string
	// Err is set when the source exists but could not be used (typically a *ParseError).
	// The source then contributes nothing to resolution.
	Err error
}

// Resolution is one immutable snapshot: the effective config plus how it was built.
type Resolution struct {
	Config     Effective
	Structured Source
	Env        Source
}

// Loader reads both sources from disk and resolves them.
// It holds no state between loads.
type Loader struct {
	StructuredPath string
	EnvPath        string
	// IgnoreProcessEnv stops TELEGRAM_* variables of the running process from
	// overlaying the env file.
	IgnoreProcessEnv bool
	Log              logx.Logger

	environ func() []string
}

func (l *Loader) logger() logx.Logger {
	if l.Log.IsZero() {
		return logx.Nop()
	}
	return l.Log
}

// Load never fails: unreadable or malformed sources are recorded on the
// returned Resolution and treated as absent.
func (l *Loader) Load() *Resolution {
	st := l.loadStructured()
	ev := l.loadEnv()

	res := &Resolution{
		Config:     Resolve(st.Raw, ev.Raw),
		Structured: st,
		Env:        ev,
	}

	log := l.logger()
	for _, src := range []Source{st, ev} {
		for _, w := range src.Warnings {
			log.Warn("config value ignored", logx.String("source", string(src.Name)), logx.String("path", src.Path), logx.String("detail", w))
		}
		if src.Err != nil {
			log.Error("config source unusable; treating as absent", logx.String("source", string(src.Name)), logx.String("path", src.Path), logx.Err(src.Err))
		}
	}
	log.Debug("config resolved",
		logx.Bool("structured_found", st.Found),
		logx.Bool("env_found", ev.Found),
		logx.Int("chat_count", len(res.Config.ChatIDs)),
		logx.Bool("token_set", res.Config.HasToken()),
	)
	return res
}

func (l *Loader) loadStructured() Source {
	src := Source{Name: SourceStructured, Path: strings.TrimSpace(l.StructuredPath)}
	if src.Path == "" {
		return src
	}
	b, err := os.ReadFile(src.Path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			src.Found = true
			src.Err = fmt.Errorf("read %s: %w", src.Path, err)
		}
		return src
	}
	src.Found = true

	raw, warn, err := ParseStructured(b, DocFormatForPath(src.Path))
	src.Warnings = warn
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			pe.Path = src.Path
		}
		src.Err = err
		return src
	}
	src.Raw = raw
	return src
}

func (l *Loader) loadEnv() Source {
	src := Source{Name: SourceEnv, Path: strings.TrimSpace(l.EnvPath)}
	vars := map[string]string{}

	if src.Path != "" {
		b, err := os.ReadFile(src.Path)
		switch {
		case err == nil:
			src.Found = true
			var warn []string
			vars, warn = parseEnvLines(b)
			src.Warnings = warn
		case !errors.Is(err, fs.ErrNotExist):
			src.Found = true
			src.Warnings = append(src.Warnings, fmt.Sprintf("read %s: %v", src.Path, err))
		}
	}

	if !l.IgnoreProcessEnv {
		environ := l.environ
		if environ == nil {
			environ = os.Environ
		}
		// The process environment wins over the file, as with dotenv loaders.
		proc := env.ToMap(environ())
		for _, k := range []string{EnvBotToken, EnvChatID} {
			if v, ok := proc[k]; ok && strings.TrimSpace(v) != "" {
				vars[k] = v
				src.Found = true
			}
		}
	}

	raw, err := FromEnv(vars)
	if err != nil {
		src.Warnings = append(src.Warnings, err.Error())
	}
	src.Raw = raw
	return src
}
