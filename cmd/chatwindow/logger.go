package main

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	grey          = "\033[38;5;240m"
	boldLightGrey = "\033[1;38;5;240m"
	red           = "\033[38;5;9m"
	yellow        = "\033[38;5;11m"
	reset         = "\033[0m"
)

// colorLevelEncoder colors the rest of the line by level. The line ending
// carries the matching reset.
func colorLevelEncoder(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	color := reset
	switch {
	case l == zapcore.DebugLevel:
		color = grey
	case l == zapcore.InfoLevel:
		color = boldLightGrey
	case l == zapcore.WarnLevel:
		color = yellow
	case l >= zapcore.ErrorLevel:
		color = red
	}
	enc.AppendString(color + l.CapitalString())
}

// NewLogger returns a console logger writing to stderr. It logs warnings
// by default, info with verbose and everything with debug. Colors are used
// only when stderr is a terminal.
func NewLogger(stderr io.Writer, verbose, debug bool) (*zap.SugaredLogger, error) {
	if stderr == nil {
		stderr = os.Stderr
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.TimeKey = ""
	encCfg.FunctionKey = ""
	encCfg.CallerKey = ""
	encCfg.ConsoleSeparator = " "
	encCfg.EncodeDuration = zapcore.StringDurationEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	if isTerminal(stderr) {
		encCfg.EncodeLevel = colorLevelEncoder
		encCfg.LineEnding = reset + zapcore.DefaultLineEnding
	}

	level := zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if verbose {
		level.SetLevel(zapcore.InfoLevel)
	}
	var opts []zap.Option
	if debug {
		level.SetLevel(zapcore.DebugLevel)
		encCfg.CallerKey = "C"
		encCfg.EncodeCaller = zapcore.ShortCallerEncoder
		opts = append(opts, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	}

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(stderr), level)
	return zap.New(core, opts...).Named("chatwindow").Sugar(), nil
}
