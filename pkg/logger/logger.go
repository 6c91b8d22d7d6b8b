package logger

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

type contextKey string

const requestIDKey contextKey = "request_id"

// Handler is a slog.Handler printing one colored line per record:
// time, request id, level, source, message and attributes.
type Handler struct {
	groups []string
	attrs  []slog.Attr

	opts Options

	mu  *sync.Mutex
	out io.Writer
}

// NewHandler creates a new Handler with the specified options. If opts is nil, uses [DefaultOptions].
func NewHandler(out io.Writer, opts *Options) *Handler {
	h := &Handler{out: out, mu: &sync.Mutex{}}
	if opts == nil {
		h.opts = *DefaultOptions
	} else {
		h.opts = *opts
	}
	if h.opts.Level == nil {
		h.opts.Level = slog.LevelInfo
	}
	return h
}

func (h *Handler) clone() *Handler {
	return &Handler{
		groups: h.groups,
		attrs:  h.attrs,
		opts:   h.opts,
		mu:     h.mu,
		out:    h.out,
	}
}

// Enabled implements slog.Handler.Enabled .
func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level.Level()
}

// Handle implements slog.Handler.Handle .
func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	bf := getBuffer()
	bf.Reset()

	if !r.Time.IsZero() {
		fmt.Fprint(bf, color.New(color.Faint).Sprint(r.Time.Format(h.opts.TimeFormat)))
		fmt.Fprint(bf, " ")
	}

	if requestID, ok := RequestIDFromContext(ctx); ok {
		fmt.Fprint(bf, color.New(color.FgMagenta).Sprintf("%s ", requestID))
	}

	fmt.Fprint(bf, levelLabel(r.Level))
	fmt.Fprint(bf, " ")

	if h.opts.SrcFileMode != Nop && r.PC != 0 {
		f, _ := runtime.CallersFrames([]uintptr{r.PC}).Next()
		filename := f.File
		if h.opts.SrcFileMode == ShortFile {
			filename = filepath.Base(f.File)
		}
		fmt.Fprintf(bf, "%s:%d ", filename, f.Line)
	}

	fmt.Fprint(bf, h.opts.MsgPrefix)
	fmt.Fprint(bf, r.Message)

	attrs := append([]slog.Attr{}, h.attrs...)
	r.Attrs(func(a slog.Attr) bool {
		attrs = append(attrs, a)
		return true
	})

	prefix := ""
	if len(h.groups) > 0 {
		prefix = strings.Join(h.groups, ".") + "."
	}
	for _, a := range attrs {
		keyColor := color.New(color.FgCyan)
		if strings.Contains(a.Key, "err") {
			keyColor = color.New(color.FgRed)
		}
		fmt.Fprint(bf, " ", keyColor.Sprintf("%s%s=", prefix, a.Key)+a.Value.String())
	}

	fmt.Fprint(bf, "\n")

	if h.opts.NoColor {
		stripANSI(bf)
	}

	h.mu.Lock()
	_, err := io.Copy(h.out, bf)
	h.mu.Unlock()

	freeBuffer(bf)

	return err
}

func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return color.New(color.BgRed, color.FgHiWhite).Sprint("ERROR")
	case level >= slog.LevelWarn:
		return color.New(color.BgYellow, color.FgHiWhite).Sprint("WARN ")
	case level >= slog.LevelInfo:
		return color.New(color.BgGreen, color.FgHiWhite).Sprint("INFO ")
	default:
		return color.New(color.BgCyan, color.FgHiWhite).Sprint("DEBUG")
	}
}

// WithGroup implements slog.Handler.WithGroup .
func (h *Handler) WithGroup(name string) slog.Handler {
	h2 := h.clone()
	h2.groups = append(append([]string{}, h.groups...), name)
	return h2
}

// WithAttrs implements slog.Handler.WithAttrs .
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h2 := h.clone()
	h2.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return h2
}

var bufPool = sync.Pool{
	New: func() interface{} {
		return &bytes.Buffer{}
	},
}

func getBuffer() *bytes.Buffer {
	return bufPool.Get().(*bytes.Buffer)
}

func freeBuffer(bf *bytes.Buffer) {
	bufPool.Put(bf)
}

type SourceFileMode int

const (
	// Nop does nothing.
	Nop SourceFileMode = iota

	// ShortFile produces only the filename (for example main.go:69).
	ShortFile

	// LongFile produces the full file path.
	LongFile
)

// re is the regular expression used for removing ANSI colors.
var re = regexp.MustCompile("[\u001B\u009B][[\\]()#;?]*(?:(?:(?:[a-zA-Z\\d]*(?:;[a-zA-Z\\d]*)*)?\u0007)|(?:(?:\\d{1,4}(?:;\\d{0,4})*)?[\\dA-PRZcf-ntqry=><~]))")

// stripANSI removes ANSI escape sequences from the provided bytes.Buffer.
func stripANSI(bf *bytes.Buffer) {
	cleaned := re.ReplaceAll(bf.Bytes(), nil)
	bf.Reset()
	bf.Write(cleaned)
}

var DefaultOptions = &Options{
	Level:       slog.LevelInfo,
	TimeFormat:  time.DateTime,
	SrcFileMode: ShortFile,
	MsgPrefix:   color.HiWhiteString("| "),
	NoColor:     false,
}

type Options struct {
	// Level reports the minimum level to log.
	// If nil, the Handler uses [slog.LevelInfo].
	Level slog.Leveler

	// TimeFormat is the time format.
	TimeFormat string

	// SrcFileMode is the source file mode.
	SrcFileMode SourceFileMode

	// MsgPrefix to show prefix before message, default: white colored "| ".
	MsgPrefix string

	// NoColor disables color, default: false.
	NoColor bool
}

// ContextWithRequestID tags ctx with the id of the pipeline execution it belongs to.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

func RequestIDFromContext(ctx context.Context) (string, bool) {
	requestID, ok := ctx.Value(requestIDKey).(string)
	return requestID, ok && requestID != ""
}

// Err is the attribute used for errors in every log call.
func Err(err error) slog.Attr {
	return slog.Any("error", err)
}

// ParseLevel maps a level name from the environment to a slog level,
// defaulting to info.
func ParseLevel(name string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo
	}
	return level
}
