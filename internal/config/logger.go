package config

import (
	"io"
	"log"
	"os"

	"gopkg.in/lumberjack.v2"
)

// SetupLogging routes the standard logger to stdout and, when configured, a rotating file.
func SetupLogging(cfg *Config) io.Closer {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	if cfg.Logging.File == "" {
		log.SetOutput(os.Stdout)
		return io.NopCloser(nil)
	}

	rotator := &lumberjack.Logger{
		Filename:   cfg.Logging.File,
		MaxSize:    cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAge:     cfg.Logging.MaxAgeDays,
		LocalTime:  true,
	}
	log.SetOutput(io.MultiWriter(os.Stdout, rotator))
	log.Printf("[Logging] Writing logs to %s", cfg.Logging.File)
	return rotator
}
