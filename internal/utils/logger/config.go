// internal/utils/logger/config.go
package logger

import (
	"io"
	"os"
)

type Config struct {
	LogFile    string // пусто = без файла
	MaxSize    int    // мегабайты
	MaxAge     int    // дни
	MaxBackups int
	Compress   bool
	Debug      bool

	// Console куда пишется человекочитаемый вывод, по умолчанию stdout
	Console io.Writer
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() *Config {
	return &Config{
		LogFile:    "pumpfun-bot.log",
		MaxSize:    50,
		MaxAge:     7,
		MaxBackups: 3,
		Compress:   true,
		Console:    os.Stdout,
	}
}
