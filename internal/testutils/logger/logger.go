/*
Package logger provides loggers for tests, log output goes to the test log
(ie visible when test fails or is run with -v flag).
*/
package logger

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"testing"

	"github.com/namada-utils/stakeaudit/logger"
)

// env var to disable colors of the test log output
const envNoColors = "STAKEAUDIT_TEST_LOG_NO_COLORS"

// New returns DEBUG level logger writing into the test log.
func New(t testing.TB) *slog.Logger {
	return NewLvl(t, slog.LevelDebug)
}

func NewLvl(t testing.TB, level slog.Level) *slog.Logger {
	noColor, _ := strconv.ParseBool(os.Getenv(envNoColors))
	l, err := logger.New(&logger.LogConfiguration{
		Level:      level.String(),
		Format:     logger.FormatConsole,
		TimeFormat: "15:04:05.0000",
		NoColor:    noColor,
		Writer:     testLogWriter{t: t},
	})
	if err != nil {
		t.Fatalf("creating test logger: %v", err)
	}
	return l
}

type testLogWriter struct {
	t testing.TB
}

func (w testLogWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	w.t.Log(strings.TrimSuffix(string(p), "\n"))
	return len(p), nil
}

/*
LoggerBuilder returns logger factory for components which build their
logger from configuration (ie CLI). The configuration is ignored, logs go
to the test log.
*/
func LoggerBuilder(t testing.TB) func(*logger.LogConfiguration) (*slog.Logger, error) {
	return func(*logger.LogConfiguration) (*slog.Logger, error) {
		return New(t), nil
	}
}
