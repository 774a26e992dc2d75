package log

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	reset  = "\033[0m"
	dim    = "\033[2m"
	bold   = "\033[1m"
	red    = "\033[31m"
	green  = "\033[32m"
	yellow = "\033[33m"
	cyan   = "\033[36m"
)

// consoleHandler formats log records as coloured terminal output:
//
//	15:04:05.000 INF extraction complete kb_id=abc entities=12
type consoleHandler struct {
	out    *lockedWriter
	level  slog.Leveler
	attrs  []slog.Attr
	prefix string
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (lw *lockedWriter) write(b []byte) error {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	_, err := lw.w.Write(b)
	return err
}

func newConsoleHandler(w io.Writer, level slog.Leveler) *consoleHandler {
	if level == nil {
		level = slog.LevelInfo
	}
	return &consoleHandler{out: &lockedWriter{w: w}, level: level}
}

// Enabled reports whether the handler handles records at the given level.
func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle formats a log record and writes it.
func (h *consoleHandler) Handle(_ context.Context, r slog.Record) error {
	var buf bytes.Buffer
	buf.Grow(256)

	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	buf.WriteString(dim + ts.Format("15:04:05.000") + reset + " ")

	color, label := levelStyle(r.Level)
	buf.WriteString(color + label + reset + " ")
	buf.WriteString(bold + r.Message + reset)

	for _, a := range h.attrs {
		h.writeAttr(&buf, a, h.prefix)
	}
	r.Attrs(func(a slog.Attr) bool {
		h.writeAttr(&buf, a, h.prefix)
		return true
	})

	buf.WriteByte('\n')
	return h.out.write(buf.Bytes())
}

// WithAttrs returns a new handler carrying both the existing attributes and attrs.
func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(merged, h.attrs)
	merged = append(merged, attrs...)
	return &consoleHandler{out: h.out, level: h.level, attrs: merged, prefix: h.prefix}
}

// WithGroup returns a new handler with the group name prepended to attribute keys.
func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &consoleHandler{out: h.out, level: h.level, attrs: h.attrs, prefix: h.prefix + name + "."}
}

func (h *consoleHandler) writeAttr(buf *bytes.Buffer, a slog.Attr, prefix string) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		p := prefix
		if a.Key != "" {
			p += a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			h.writeAttr(buf, ga, p)
		}
		return
	}
	buf.WriteString(" " + dim + prefix + a.Key + "=" + reset)
	buf.WriteString(formatValue(a.Value))
}

func levelStyle(level slog.Level) (string, string) {
	switch {
	case level < slog.LevelInfo:
		return cyan, "DBG"
	case level < slog.LevelWarn:
		return green, "INF"
	case level < slog.LevelError:
		return yellow, "WRN"
	default:
		return red, "ERR"
	}
}

func formatValue(v slog.Value) string {
	s := v.String()
	if v.Kind() == slog.KindString && strings.ContainsAny(s, " \t\n\"\\") {
		return strconv.Quote(s)
	}
	return s
}
