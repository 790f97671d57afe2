package logger

import (
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger wraps zerolog and hands out component-scoped loggers.
type Logger struct {
	logger zerolog.Logger
	mutex  sync.RWMutex
}

var consoleWriter = zerolog.ConsoleWriter{
	Out:        os.Stdout,
	TimeFormat: time.RFC3339,
}

// NewLogger initialises the logging system.
func NewLogger(debug bool) *Logger {
	l := &Logger{}

	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	multi := zerolog.MultiLevelWriter(consoleWriter)

	l.logger = zerolog.New(multi).
		With().
		Timestamp().
		Caller().
		Logger()

	log.Logger = l.logger

	return l
}

// GetLogger returns a logger tagged with the component name.
func (l *Logger) GetLogger(component string) zerolog.Logger {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	return l.logger.With().
		Str("component", component).
		Logger()
}

// SetLogOutput adds a rotating file writer alongside the console.
func (l *Logger) SetLogOutput(logFilePath string) {
	fileWriter := &lumberjack.Logger{
		Filename:   logFilePath,
		MaxSize:    100, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}

	multi := zerolog.MultiLevelWriter(consoleWriter, fileWriter)

	l.mutex.Lock()
	defer l.mutex.Unlock()

	l.logger = zerolog.New(multi).
		With().
		Timestamp().
		Caller().
		Logger()

	log.Logger = l.logger
}
