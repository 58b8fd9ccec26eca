package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

const (
	permission = 0664
)

// LogBuild assembles the service logger. Output defaults to stdout.
type LogBuild struct {
	writer  io.Writer
	path    string
	level   string
	console bool
	service string
}

// LogData is the built logger plus the file it owns, if any.
type LogData struct {
	LogFile *os.File
	Logger  zerolog.Logger
}

func New() *LogBuild {
	return &LogBuild{}
}

func (build *LogBuild) FromPath(path string) *LogBuild {
	build.path = path
	return build
}

func (build *LogBuild) FromBuffer(w io.Writer) *LogBuild {
	build.writer = w
	return build
}

// WithLevel takes a zerolog level name; unknown names fall back to info.
func (build *LogBuild) WithLevel(level string) *LogBuild {
	build.level = level
	return build
}

// Console switches to the human readable writer used in development.
func (build *LogBuild) Console(enabled bool) *LogBuild {
	build.console = enabled
	return build
}

func (build *LogBuild) Service(name string) *LogBuild {
	build.service = name
	return build
}

func (build *LogBuild) Make() (logData *LogData, err error) {
	logData = new(LogData)
	var writer io.Writer = os.Stdout
	if build.writer != nil {
		writer = build.writer
	}
	if build.path != "" {
		logData.LogFile, err = os.OpenFile(build.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, permission)
		if err != nil {
			return nil, err
		}
		writer = zerolog.SyncWriter(logData.LogFile)
	}
	if build.console {
		writer = zerolog.ConsoleWriter{Out: writer, TimeFormat: time.RFC3339}
	}

	level, err := zerolog.ParseLevel(build.level)
	if err != nil || build.level == "" {
		level = zerolog.InfoLevel
	}

	ctx := zerolog.New(writer).Level(level).With().Timestamp()
	if build.service != "" {
		ctx = ctx.Str("service", build.service)
	}
	logData.Logger = ctx.Logger()
	return logData, nil
}

// Close releases the log file when one was opened.
func (data *LogData) Close() error {
	if data.LogFile == nil {
		return nil
	}
	return data.LogFile.Close()
}

// Nop is a logger that discards everything, for tests and tools.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}
