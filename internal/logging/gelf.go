package logging

import (
	"context"
	"log/slog"
	"os"

	"github.com/Graylog2/go-gelf/gelf"
)

// GELFHandler forwards slog records to a Graylog endpoint in GELF format.
type GELFHandler struct {
	writer *gelf.Writer
	host   string
	level  slog.Level
	attrs  []slog.Attr
}

// NewGELFHandler dials the Graylog UDP endpoint at addr.
func NewGELFHandler(addr string, level slog.Level) (*GELFHandler, error) {
	w, err := gelf.NewWriter(addr)
	if err != nil {
		return nil, err
	}
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "tacmap"
	}
	return &GELFHandler{
		writer: w,
		host:   hostname,
		level:  level,
	}, nil
}

// Enabled reports whether the handler accepts records at the given level.
func (h *GELFHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

// Handle converts the record to a GELF message and writes it.
func (h *GELFHandler) Handle(_ context.Context, r slog.Record) error {
	extra := make(map[string]any, r.NumAttrs()+len(h.attrs))
	for _, a := range h.attrs {
		extra["_"+a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		extra["_"+a.Key] = a.Value.Any()
		return true
	})

	return h.writer.WriteMessage(&gelf.Message{
		Version:  "1.1",
		Host:     h.host,
		Short:    r.Message,
		TimeUnix: float64(r.Time.UnixMilli()) / 1000.0,
		Level:    gelfLevel(r.Level),
		Extra:    extra,
	})
}

// WithAttrs returns a handler that includes attrs on every record.
func (h *GELFHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &GELFHandler{
		writer: h.writer,
		host:   h.host,
		level:  h.level,
		attrs:  merged,
	}
}

// WithGroup is accepted but flattened; GELF has no nested structure.
func (h *GELFHandler) WithGroup(name string) slog.Handler {
	return h
}

// Close releases the underlying UDP connection.
func (h *GELFHandler) Close() error {
	return h.writer.Close()
}

// Syslog severities used by GELF.
const (
	gelfLevelErr     int32 = 3
	gelfLevelWarning int32 = 4
	gelfLevelInfo    int32 = 6
	gelfLevelDebug   int32 = 7
)

// gelfLevel maps slog levels onto syslog severity used by GELF.
func gelfLevel(level slog.Level) int32 {
	switch {
	case level >= slog.LevelError:
		return gelfLevelErr
	case level >= slog.LevelWarn:
		return gelfLevelWarning
	case level >= slog.LevelInfo:
		return gelfLevelInfo
	default:
		return gelfLevelDebug
	}
}
