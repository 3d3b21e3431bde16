package bufvec

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// discard drops every record and reports every level as disabled.
type discard struct{}

func (discard) Enabled(context.Context, slog.Level) bool  { return false }
func (discard) Handle(context.Context, slog.Record) error { return nil }
func (discard) WithAttrs([]slog.Attr) slog.Handler        { return discard{} }
func (discard) WithGroup(string) slog.Handler             { return discard{} }

var (
	silent = slog.New(discard{})

	logger atomic.Pointer[slog.Logger]
)

func init() {
	logger.Store(silent)
}

// SetLogger routes bufvec diagnostics to l. Nil silences them again, which
// is also the initial state. It may be called while vecs are in use.
//
// Records carry the vec label and sizes as attributes:
//   - [slog.LevelDebug]: vec creation and copies, native buffer allocation
//     and widened unaligned writes
//   - [slog.LevelInfo]: reallocation on Push, native device opened
//   - [slog.LevelWarn]: backends skipped by backend.Default
//
// For example, to see every reallocation:
//
//	bufvec.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = silent
	}
	logger.Store(l)
}

// Logger returns the logger set by SetLogger. The backend packages log
// through it too.
func Logger() *slog.Logger {
	return logger.Load()
}
