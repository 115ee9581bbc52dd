/*
   alphasim - structured logging wrapper for slog

   Copyright (c) 2025, Alpha AXP Core Emulator Contributors

   Permission is hereby granted, free of charge, to any person obtaining a
   copy of this software and associated documentation files (the "Software"),
   to deal in the Software without restriction, including without limitation
   the rights to use, copy, modify, merge, publish, distribute, sublicense,
   and/or sell copies of the Software, and to permit persons to whom the
   Software is furnished to do so, subject to the following conditions:

   The above copyright notice and this permission notice shall be included in
   all copies or substantial portions of the Software.

   THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
   IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
   FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.  IN NO EVENT SHALL
   THE AUTHORS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
   IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
   CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
*/

// Package obslog wraps log/slog with a handler that always mirrors
// warning-and-above records to stderr in addition to the configured sink,
// the same role the teacher's util/logger package plays, widened with a
// per-CPU "cpu" attribute so a multi-core run's log lines can be filtered
// by core.
package obslog

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Handler is a slog.Handler that always writes to an underlying sink and,
// when debug is enabled or the record is at LevelWarn or above, also
// mirrors the line to stderr.
type Handler struct {
	out   io.Writer
	h     slog.Handler
	mu    *sync.Mutex
	debug bool
}

func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.h.Enabled(ctx, level)
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &Handler{out: h.out, h: h.h.WithAttrs(attrs), mu: h.mu, debug: h.debug}
}

func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{out: h.out, h: h.h.WithGroup(name), mu: h.mu, debug: h.debug}
}

func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	level := r.Level.String() + ":"
	formattedTime := r.Time.Format("2006/01/02 15:04:05")

	strs := []string{formattedTime, level, r.Message}
	if r.NumAttrs() != 0 {
		r.Attrs(func(a slog.Attr) bool {
			strs = append(strs, a.Key+"="+a.Value.String())
			return true
		})
	}
	line := strings.Join(strs, " ") + "\n"
	b := []byte(line)

	h.mu.Lock()
	defer h.mu.Unlock()

	var err error
	if h.out != nil {
		_, err = h.out.Write(b)
	}
	if h.debug || r.Level >= slog.LevelWarn {
		_, err = os.Stderr.Write(b)
	}
	return err
}

// SetDebug toggles whether every record, not just warning-and-above, is
// mirrored to stderr.
func (h *Handler) SetDebug(debug bool) { h.debug = debug }

// NewHandler builds a Handler writing to sink, defaulting to LevelInfo
// when opts is nil.
func NewHandler(sink io.Writer, opts *slog.HandlerOptions, debug bool) *Handler {
	if opts == nil {
		opts = &slog.HandlerOptions{}
	}
	return &Handler{
		out: sink,
		h: slog.NewTextHandler(sink, &slog.HandlerOptions{
			Level:     opts.Level,
			AddSource: opts.AddSource,
		}),
		mu:    &sync.Mutex{},
		debug: debug,
	}
}

// New builds a ready-to-use *slog.Logger over NewHandler's Handler.
func New(sink io.Writer, level slog.Level, debug bool) *slog.Logger {
	return slog.New(NewHandler(sink, &slog.HandlerOptions{Level: level}, debug))
}

// ForCPU returns a child logger tagging every record with the logical
// CPU ID, so a multi-core run's interleaved log stream can be filtered
// per core.
func ForCPU(base *slog.Logger, cpuID int) *slog.Logger {
	return base.With(slog.Int("cpu", cpuID))
}
