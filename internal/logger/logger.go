package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ********************************************************
// ********* LOGGING **************************************
// ********************************************************

// LogFilePath is where 'f' and 'b' outputs append to.
var LogFilePath = filepath.Join(os.TempDir(), "podds.log")

type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	INFORM
	HIGHLIGHT
	WARN
	ERROR
	FATAL
)

type Logger struct {
	mu           sync.Mutex
	zl           zerolog.Logger
	level        LogLevel
	showDateTime bool
	out          io.Writer
	file         *os.File
}

var defaultLogger = NewLogger(INFO, os.Stderr)

// NewLogger builds a logger writing console formatted lines to w.
// Stdout is never used as a default since the MCP server speaks JSON-RPC on it.
func NewLogger(level LogLevel, w io.Writer) *Logger {
	l := &Logger{level: level, out: w}
	l.rebuild()
	return l
}

func (l *Logger) rebuild() {
	cw := zerolog.ConsoleWriter{Out: l.out, NoColor: l.out != io.Writer(os.Stderr)}
	if l.showDateTime {
		cw.TimeFormat = time.DateTime
	} else {
		cw.PartsExclude = []string{zerolog.TimestampFieldName}
	}
	l.zl = zerolog.New(cw).With().Timestamp().Logger()
}

func SetShowDateTime(value bool) {
	defaultLogger.mu.Lock()
	defer defaultLogger.mu.Unlock()
	defaultLogger.showDateTime = value
	defaultLogger.rebuild()
}

func SetLevel(level LogLevel) {
	defaultLogger.mu.Lock()
	defer defaultLogger.mu.Unlock()
	defaultLogger.level = level
}

func GetLevel() LogLevel {
	defaultLogger.mu.Lock()
	defer defaultLogger.mu.Unlock()
	return defaultLogger.level
}

// SetOutput redirects the default logger, mostly for tests.
func SetOutput(w io.Writer) {
	defaultLogger.mu.Lock()
	defer defaultLogger.mu.Unlock()
	defaultLogger.closeFile()
	defaultLogger.out = w
	defaultLogger.rebuild()
}

// SetLogOutput sets the output destination for logs
// 'c' for console (stderr), 'f' for file, 'b' for both
func SetLogOutput(outputType rune) error {
	defaultLogger.mu.Lock()
	defer defaultLogger.mu.Unlock()

	switch outputType {
	case 'c':
		defaultLogger.closeFile()
		defaultLogger.out = os.Stderr
	case 'f', 'b':
		f, err := os.OpenFile(LogFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defaultLogger.closeFile()
		defaultLogger.file = f
		if outputType == 'f' {
			defaultLogger.out = f
		} else {
			defaultLogger.out = zerolog.MultiLevelWriter(os.Stderr, f)
		}
	default:
		return fmt.Errorf("invalid log output type: %c", outputType)
	}
	defaultLogger.rebuild()
	return nil
}

func (l *Logger) closeFile() {
	if l.file != nil {
		l.file.Close()
		l.file = nil
	}
}

// ParseLevel accepts the level names used in config files and PODDS_LOG_LEVEL.
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return DEBUG, nil
	case "", "INFO":
		return INFO, nil
	case "INFORM":
		return INFORM, nil
	case "HIGHLIGHT":
		return HIGHLIGHT, nil
	case "WARN", "WARNING":
		return WARN, nil
	case "ERROR":
		return ERROR, nil
	case "FATAL":
		return FATAL, nil
	}
	return INFO, fmt.Errorf("unknown log level %q", s)
}

func (l *Logger) log(level LogLevel, format string, v ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if level < l.level {
		return
	}

	_, file, line, ok := runtime.Caller(2)
	if !ok {
		file = "unknown"
		line = 0
	}

	msg := format
	processed, jsonObjects := processArgs(v...)
	if len(processed) > 0 {
		msg = format + " " + strings.Join(processed, " ")
	}

	ev := l.zl.WithLevel(level.zerolog()).Str("caller", fmt.Sprintf("%s:%d", filepath.Base(file), line))
	if level == INFORM || level == HIGHLIGHT {
		ev = ev.Str("tag", level.String())
	}
	for i, obj := range jsonObjects {
		ev = ev.RawJSON(fmt.Sprintf("obj%d", i), obj)
	}
	ev.Msg(msg)
}

func (l LogLevel) zerolog() zerolog.Level {
	switch l {
	case DEBUG:
		return zerolog.DebugLevel
	case INFO, INFORM, HIGHLIGHT:
		return zerolog.InfoLevel
	case WARN:
		return zerolog.WarnLevel
	case ERROR:
		return zerolog.ErrorLevel
	case FATAL:
		// zerolog's FatalLevel exits from Msg, Fatal below does it explicitly
		return zerolog.ErrorLevel
	}
	return zerolog.NoLevel
}

func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case INFORM:
		return "INFORM"
	case HIGHLIGHT:
		return "HIGHLIGHT"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	case FATAL:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// processArgs renders primitives as text and everything else as compact JSON
func processArgs(args ...any) ([]string, []json.RawMessage) {
	if len(args) == 0 {
		return nil, nil
	}

	var primitives []string
	var jsonObjects []json.RawMessage

	for _, arg := range args {
		if isPrimitive(arg) {
			switch v := arg.(type) {
			case float32:
				primitives = append(primitives, fmt.Sprintf("%.2f", v))
			case float64:
				primitives = append(primitives, fmt.Sprintf("%.2f", v))
			case error:
				primitives = append(primitives, v.Error())
			case nil:
				primitives = append(primitives, "nil")
			default:
				primitives = append(primitives, fmt.Sprintf("%v", v))
			}
			continue
		}
		b, err := json.Marshal(arg)
		if err != nil {
			primitives = append(primitives, fmt.Sprintf("%v", arg))
			continue
		}
		primitives = append(primitives, fmt.Sprintf("[Object of type %s]", reflect.TypeOf(arg)))
		jsonObjects = append(jsonObjects, b)
	}
	return primitives, jsonObjects
}

func isPrimitive(v any) bool {
	if v == nil {
		return true
	}

	switch v.(type) {
	case string, bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64, error:
		return true
	default:
		return false
	}
}

// Convenience methods using the default logger
func Debug(format string, v ...any) {
	defaultLogger.log(DEBUG, format, v...)
}

func Info(format string, v ...any) {
	defaultLogger.log(INFO, format, v...)
}

func Inform(format string, v ...any) {
	defaultLogger.log(INFORM, format, v...)
}

func Highlight(format string, v ...any) {
	defaultLogger.log(HIGHLIGHT, format, v...)
}

func Warn(format string, v ...any) {
	defaultLogger.log(WARN, format, v...)
}

func Error(format string, v ...any) {
	defaultLogger.log(ERROR, format, v...)
}

func Fatal(format string, v ...any) {
	defaultLogger.log(FATAL, format, v...)
	os.Exit(1)
}
