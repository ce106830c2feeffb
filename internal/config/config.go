package config

import "os"

type Config struct {
	TelegramBotToken string
	DatabasePath     string
	UploadsDir       string
	Timezone         string
	LogLevel         string
	LogFormat        string
}

func Load() *Config {
	return &Config{
		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		DatabasePath:     getEnv("DATABASE_PATH", "./postqueue.db"),
		UploadsDir:       getEnv("UPLOADS_DIR", "./uploads"),
		Timezone:         getEnv("TIMEZONE", "Europe/Kyiv"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogFormat:        getEnv("LOG_FORMAT", "console"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
