// Package logging configures the process-wide logrus logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rifflock/lfshook"
	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"navsim/internal/config"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Configure sets the level and console output and, when cfg.File is set, adds
// a hook that mirrors every entry to a rotating file. The returned Closer
// releases the file.
func Configure(cfg config.LogConfig, console io.Writer) (io.Closer, error) {
	level, err := cfg.GetLevel()
	if err != nil {
		return nil, err
	}
	log.SetLevel(level)

	if console == nil {
		console = os.Stderr
	}
	log.SetFormatter(&log.TextFormatter{FullTimestamp: false})
	log.SetOutput(console)
	// Drop file hooks left by an earlier Configure.
	log.StandardLogger().ReplaceHooks(make(log.LevelHooks))

	if cfg.File == "" {
		return nopCloser{}, nil
	}

	if dir := filepath.Dir(cfg.File); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
	}
	rotating := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    100,
		MaxBackups: 366,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   true,
	}

	fileFmt := &log.TextFormatter{DisableColors: true, FullTimestamp: true}
	hook := lfshook.NewHook(lfshook.WriterMap{
		log.PanicLevel: rotating,
		log.FatalLevel: rotating,
		log.ErrorLevel: rotating,
		log.WarnLevel:  rotating,
		log.InfoLevel:  rotating,
		log.DebugLevel: rotating,
		log.TraceLevel: rotating,
	}, fileFmt)
	log.AddHook(hook)

	return rotating, nil
}
