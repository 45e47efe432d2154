package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/term"
)

const (
	FormatText    = "text"
	FormatJSON    = "json"
	FormatECS     = "ecs"
	FormatConsole = "console"
	FormatCLI     = "cli"
)

/*
LogConfiguration describes how to build a logger, usually loaded from the
"logger-config.yaml" file and then amended by command line flags.
*/
type LogConfiguration struct {
	Level      string `yaml:"defaultLevel"`
	Format     string `yaml:"format"`
	OutputPath string `yaml:"outputPath"`
	TimeFormat string `yaml:"timeFormat"`
	// NoColor disables colors of the "console" format. Colors are also
	// disabled when output is not a terminal.
	NoColor bool `yaml:"noColor"`

	// when set OutputPath is ignored and log is written into Writer.
	Writer io.Writer `yaml:"-"`
}

/*
New creates logger based on configuration.

	log, err := logger.New(&logger.LogConfiguration{Level: "debug", Format: "console"})
*/
func New(cfg *LogConfiguration) (*slog.Logger, error) {
	out, err := cfg.writer()
	if err != nil {
		return nil, fmt.Errorf("creating log writer: %w", err)
	}
	h, err := cfg.handler(out)
	if err != nil {
		return nil, fmt.Errorf("creating log handler: %w", err)
	}
	return slog.New(h), nil
}

func (cfg *LogConfiguration) handler(out io.Writer) (slog.Handler, error) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if cfg.Level != "" {
		var lvl slog.Level
		if err := lvl.UnmarshalText([]byte(cfg.Level)); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		opts.Level = lvl
	}

	switch strings.ToLower(cfg.Format) {
	case "", FormatText:
		opts.ReplaceAttr = composeAttrFmt(formatTimeAttr(cfg.TimeFormat), formatDataAttrAsJSON)
		return slog.NewTextHandler(out, opts), nil
	case FormatJSON:
		opts.ReplaceAttr = formatTimeAttr(cfg.TimeFormat)
		return slog.NewJSONHandler(out, opts), nil
	case FormatECS:
		opts.AddSource = true
		opts.ReplaceAttr = formatAttrECS
		return slog.NewJSONHandler(out, opts), nil
	case FormatCLI:
		opts.ReplaceAttr = formatAttrCLI
		return slog.NewTextHandler(out, opts), nil
	case FormatConsole:
		cw := zerolog.ConsoleWriter{
			Out:        out,
			NoColor:    cfg.NoColor || !isTerminal(out),
			TimeFormat: cfg.TimeFormat,
		}
		if cw.TimeFormat == "" || cw.TimeFormat == "none" {
			cw.TimeFormat = "15:04:05.000"
		}
		// ConsoleWriter parses JSON, each record is written with a single Write call by the JSON handler
		opts.ReplaceAttr = composeAttrFmt(formatDataAttrAsJSON, formatAttrConsole)
		return slog.NewJSONHandler(cw, opts), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}
}

func (cfg *LogConfiguration) writer() (io.Writer, error) {
	if cfg.Writer != nil {
		return cfg.Writer, nil
	}
	switch strings.ToLower(cfg.OutputPath) {
	case "", "stderr":
		return os.Stderr, nil
	case "stdout":
		return os.Stdout, nil
	case "discard":
		return io.Discard, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.OutputPath), 0700); err != nil {
		return nil, fmt.Errorf("creating directory for log file: %w", err)
	}
	f, err := os.OpenFile(cfg.OutputPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	return f, nil
}

func isTerminal(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return term.IsTerminal(int(f.Fd()))
	}
	return false
}
