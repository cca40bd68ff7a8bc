package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	TwitchUsername string
	TwitchToken    string
	TwitchChannel  string
	TwitchClientId string
	TwitchApiToken string

	DatabasePath  string
	SoundsDir     string
	ListenAddr    string
	CommandPrefix string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		TwitchUsername: os.Getenv("TWITCH_BOT_USERNAME"),
		TwitchToken:    os.Getenv("TWITCH_BOT_ACCESS_TOKEN"),
		TwitchChannel:  os.Getenv("TWITCH_BOT_CHANNEL"),
		TwitchClientId: os.Getenv("TWITCH_CLIENT_ID"),
		TwitchApiToken: os.Getenv("TWITCH_API_ACCESS_TOKEN"),

		DatabasePath:  getenvDefault("YAMBOT_DB_PATH", "data/yambot.db"),
		SoundsDir:     getenvDefault("YAMBOT_SOUNDS_DIR", "assets/sounds"),
		ListenAddr:    getenvDefault("YAMBOT_LISTEN_ADDR", ":8080"),
		CommandPrefix: getenvDefault("YAMBOT_COMMAND_PREFIX", "!"),
	}

	if cfg.TwitchUsername == "" || cfg.TwitchToken == "" {
		log.Println("Advertencia: No se encontraron variables necesarias de Twitch")
	}

	return cfg, nil
}

func getenvDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
