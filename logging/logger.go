package logging

import (
	"fmt"
	"io"
	"strings"

	"github.com/crytic/solbuild/logging/colors"
	"github.com/rs/zerolog"
)

// GlobalLogger describes a Logger that is disabled by default and is configured by the CLI. Each module/package
// should create its own sub-logger. This allows to create unique logging instances depending on the use case.
var GlobalLogger = NewLogger(zerolog.Disabled)

// Logger describes a custom logging object that can log events to any arbitrary channel in structured, unstructured,
// or unstructured-and-colorized formats.
type Logger struct {
	// level describes the log level
	level zerolog.Level

	// fields describes key-value pairs which are attached to every event emitted by this logger.
	fields [][2]string

	// structuredLogger outputs JSON-formatted events to every writer in structuredWriters.
	structuredLogger zerolog.Logger

	// structuredWriters describes the writers which receive structured output.
	structuredWriters []io.Writer

	// unstructuredLogger outputs human-readable events without ANSI coloring to unstructuredWriters.
	unstructuredLogger zerolog.Logger

	// unstructuredWriters describes the writers which receive unstructured output.
	unstructuredWriters []io.Writer

	// unstructuredColorLogger outputs human-readable, colorized events to unstructuredColorWriters.
	unstructuredColorLogger zerolog.Logger

	// unstructuredColorWriters describes the writers which receive colorized unstructured output.
	unstructuredColorWriters []io.Writer
}

// LogFormat describes what format to log in
type LogFormat string

const (
	// STRUCTURED describes that logging should be done in structured JSON format
	STRUCTURED LogFormat = "structured"
	// UNSTRUCTURED describes that logging should be done in an unstructured format
	UNSTRUCTURED LogFormat = "unstructured"
)

// StructuredLogInfo describes a key-value mapping that can be used to log structured data
type StructuredLogInfo map[string]any

// NewLogger will create a new Logger object with a specific log level. Writers are attached afterward with AddWriter.
func NewLogger(level zerolog.Level) *Logger {
	l := &Logger{
		level: level,
	}
	l.rebuild()
	return l
}

// NewSubLogger will create a new Logger with unique context in the form of a key-value pair. The expected use of this
// function is for each package to have their own unique logger so that parsing of logs is "grep-able" based on some key.
// The sub-logger receives a copy of the parent's writers at the time of creation.
func (l *Logger) NewSubLogger(key string, value string) *Logger {
	sub := &Logger{
		level:                    l.level,
		fields:                   append(append([][2]string{}, l.fields...), [2]string{key, value}),
		structuredWriters:        append([]io.Writer{}, l.structuredWriters...),
		unstructuredWriters:      append([]io.Writer{}, l.unstructuredWriters...),
		unstructuredColorWriters: append([]io.Writer{}, l.unstructuredColorWriters...),
	}
	sub.rebuild()
	return sub
}

// AddWriter will add a writer to the list of channels where log output will be sent. Adding a writer which already
// exists for the given format is a no-op.
func (l *Logger) AddWriter(writer io.Writer, format LogFormat, colored bool) {
	writers := l.writersFor(format, colored)
	for _, w := range *writers {
		if w == writer {
			return
		}
	}
	*writers = append(*writers, writer)
	l.rebuild()
}

// RemoveWriter will remove a writer from the list of writers that the logger manages. If the writer does not exist,
// this function is a no-op
func (l *Logger) RemoveWriter(writer io.Writer, format LogFormat, colored bool) {
	writers := l.writersFor(format, colored)
	for i, w := range *writers {
		if w == writer {
			*writers = append((*writers)[:i], (*writers)[i+1:]...)
			l.rebuild()
			return
		}
	}
}

// writersFor obtains a pointer to the writer list that matches the provided format and coloring.
func (l *Logger) writersFor(format LogFormat, colored bool) *[]io.Writer {
	if format == STRUCTURED {
		return &l.structuredWriters
	}
	if colored {
		return &l.unstructuredColorWriters
	}
	return &l.unstructuredWriters
}

// rebuild recreates the underlying zerolog loggers from the current writer lists, level, and context fields.
func (l *Logger) rebuild() {
	l.structuredLogger = l.withFields(l.newZerolog(l.structuredWriters).With().Timestamp())

	plain := make([]io.Writer, len(l.unstructuredWriters))
	for i, w := range l.unstructuredWriters {
		plain[i] = setupDefaultFormatting(zerolog.ConsoleWriter{Out: w, NoColor: true}, l.level, false)
	}
	l.unstructuredLogger = l.withFields(l.newZerolog(plain).With())

	colored := make([]io.Writer, len(l.unstructuredColorWriters))
	for i, w := range l.unstructuredColorWriters {
		colored[i] = setupDefaultFormatting(zerolog.ConsoleWriter{Out: w}, l.level, true)
	}
	l.unstructuredColorLogger = l.withFields(l.newZerolog(colored).With())
}

// newZerolog creates a zerolog.Logger writing to all writers, or a disabled logger if there are none.
func (l *Logger) newZerolog(writers []io.Writer) zerolog.Logger {
	if len(writers) == 0 {
		return zerolog.New(io.Discard).Level(zerolog.Disabled)
	}
	return zerolog.New(zerolog.MultiLevelWriter(writers...)).Level(l.level)
}

// withFields attaches this logger's context fields to the provided zerolog context.
func (l *Logger) withFields(ctx zerolog.Context) zerolog.Logger {
	for _, field := range l.fields {
		ctx = ctx.Str(field[0], field[1])
	}
	return ctx.Logger()
}

// Level will get the log level of the Logger
func (l *Logger) Level() zerolog.Level {
	return l.level
}

// SetLevel will update the log level of the Logger
func (l *Logger) SetLevel(level zerolog.Level) {
	l.level = level
	l.rebuild()
}

// Trace is a wrapper function that will log a trace event
func (l *Logger) Trace(args ...any) {
	l.log(zerolog.TraceLevel, args...)
}

// Debug is a wrapper function that will log a debug event
func (l *Logger) Debug(args ...any) {
	l.log(zerolog.DebugLevel, args...)
}

// Info is a wrapper function that will log an info event
func (l *Logger) Info(args ...any) {
	l.log(zerolog.InfoLevel, args...)
}

// Warn is a wrapper function that will log a warning event
func (l *Logger) Warn(args ...any) {
	l.log(zerolog.WarnLevel, args...)
}

// Error is a wrapper function that will log an error event.
func (l *Logger) Error(args ...any) {
	l.log(zerolog.ErrorLevel, args...)
}

// Panic is a wrapper function that will log a panic event and then panic.
func (l *Logger) Panic(args ...any) {
	l.log(zerolog.PanicLevel, args...)
}

// log builds the messages for each output format and sends them to the respective loggers.
func (l *Logger) log(level zerolog.Level, args ...any) {
	// Build the messages and retrieve any error or associated structured log info
	colorMsg, plainMsg, err, info := buildMsgs(args...)

	// Attach stack traces to errors when debugging
	withStack := l.level <= zerolog.DebugLevel || level == zerolog.PanicLevel

	// Instantiate log events. Panic events are emitted at error level to the individual loggers so that every channel
	// receives the message before we panic ourselves.
	eventLevel := level
	if level == zerolog.PanicLevel {
		eventLevel = zerolog.ErrorLevel
	}
	events := []struct {
		event *zerolog.Event
		msg   string
	}{
		{l.structuredLogger.WithLevel(eventLevel), plainMsg},
		{l.unstructuredLogger.WithLevel(eventLevel), plainMsg},
		{l.unstructuredColorLogger.WithLevel(eventLevel), colorMsg},
	}
	for _, e := range events {
		if e.event == nil {
			continue
		}
		e.event.Err(err)
		if withStack && err != nil {
			e.event.Stack()
		}
		if info != nil {
			e.event.Any("info", info)
		}
		e.event.Msg(e.msg)
	}

	if level == zerolog.PanicLevel {
		if err != nil {
			panic(fmt.Sprintf("%s: %v", plainMsg, err))
		}
		panic(plainMsg)
	}
}

// buildMsgs describes a function that takes in a variadic list of arguments of any type and returns two strings and,
// optionally, an error and a StructuredLogInfo object. The first string will be a colorized-string that can be used for
// console logging while the second string will be a non-colorized one that can be used for file/structured logging.
func buildMsgs(args ...any) (string, string, error, StructuredLogInfo) {
	// Guard clause
	if len(args) == 0 {
		return "", "", nil, nil
	}

	// Initialize the base color context, the string buffers and the structured log info object
	colorCtx := colors.Reset
	colorOutput := make([]string, 0)
	plainOutput := make([]string, 0)
	var info StructuredLogInfo
	var err error

	// Iterate through each argument in the list and switch on type
	for _, arg := range args {
		switch t := arg.(type) {
		case colors.ColorFunc:
			// If the argument is a color function, switch the current color context
			colorCtx = t
		case StructuredLogInfo:
			// Note that only one structured log info can be provided for each log message
			info = t
		case error:
			// Note that only one error can be provided for each log message
			err = t
		default:
			colorOutput = append(colorOutput, colorCtx(t))
			plainOutput = append(plainOutput, fmt.Sprintf("%v", t))
		}
	}

	return strings.Join(colorOutput, ""), strings.Join(plainOutput, ""), err, info
}

// setupDefaultFormatting will update the console writer's formatting to the solbuild standard
func setupDefaultFormatting(writer zerolog.ConsoleWriter, level zerolog.Level, colored bool) zerolog.ConsoleWriter {
	// Get rid of the timestamp for console output
	writer.FormatTimestamp = func(i interface{}) string {
		return ""
	}

	// We will define a custom format for each level
	writer.FormatLevel = func(i any) string {
		levelStr, _ := i.(string)
		parsed, err := zerolog.ParseLevel(levelStr)
		if err != nil {
			return levelStr
		}

		colorize := func(f colors.ColorFunc, s string) string {
			if !colored {
				return s
			}
			return f(s)
		}

		switch parsed {
		case zerolog.TraceLevel:
			return colorize(colors.CyanBold, zerolog.LevelTraceValue)
		case zerolog.DebugLevel:
			return colorize(colors.BlueBold, zerolog.LevelDebugValue)
		case zerolog.InfoLevel:
			return colorize(colors.GreenBold, colors.LEFT_ARROW)
		case zerolog.WarnLevel:
			return colorize(colors.YellowBold, zerolog.LevelWarnValue)
		case zerolog.ErrorLevel, zerolog.FatalLevel, zerolog.PanicLevel:
			return colorize(colors.RedBold, parsed.String())
		default:
			return levelStr
		}
	}

	// Above debug level, the service fields are noise on the console
	if level > zerolog.DebugLevel {
		writer.FieldsExclude = []string{"module", "build"}
	}

	return writer
}
