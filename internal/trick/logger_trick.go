package trick

import (
	"fmt"
	"log/slog"

	"github.com/tonimelisma/watchmedo-go/internal/fsevent"
)

// LoggerParams configures LoggerTrick.
type LoggerParams struct {
	FilterParams `yaml:",inline"`
}

// LoggerTrick logs every matching event.
type LoggerTrick struct {
	filter    *Filter
	sourceDir string
	logger    *slog.Logger
}

// NewLoggerTrick builds a LoggerTrick from p.
func NewLoggerTrick(p LoggerParams, logger *slog.Logger) (*LoggerTrick, error) {
	f, err := NewFilter(p.FilterParams)
	if err != nil {
		return nil, fmt.Errorf("LoggerTrick: %w", err)
	}

	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &LoggerTrick{filter: f, sourceDir: p.SourceDirectory, logger: logger}, nil
}

func newLoggerTrick(params map[string]any, env Env) (fsevent.Handler, error) {
	p := LoggerParams{FilterParams: defaultFilterParams()}
	if err := decodeParams(params, &p); err != nil {
		return nil, fmt.Errorf("LoggerTrick: %w", err)
	}

	return NewLoggerTrick(p, env.Logger)
}

// SourceDirectory implements fsevent.PathOverrider.
func (t *LoggerTrick) SourceDirectory() string {
	return t.sourceDir
}

// Dispatch implements fsevent.Handler.
func (t *LoggerTrick) Dispatch(ev fsevent.Event) {
	if !t.filter.Match(ev) {
		return
	}

	attrs := []any{
		slog.String("event", string(ev.Type)),
		slog.String("object", ev.Object()),
		slog.String("src_path", ev.SrcPath),
	}
	if ev.Type == fsevent.Moved {
		attrs = append(attrs, slog.String("dest_path", ev.DestPath))
	}

	t.logger.Info(fmt.Sprintf("%s %s", ev.Type, ev.Object()), attrs...)
}
