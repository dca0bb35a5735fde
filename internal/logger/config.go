// =============================
// File: internal/logger/config.go
// =============================
package logger

// Config controls output destinations and rotation.
type Config struct {
	LogFile     string
	MaxSize     int // megabytes
	MaxBackups  int
	MaxAge      int // days
	Compress    bool
	Development bool
}

func DefaultConfig() *Config {
	return &Config{
		LogFile:    "logs/bot.log",
		MaxSize:    50,
		MaxBackups: 5,
		MaxAge:     14,
		Compress:   true,
	}
}
