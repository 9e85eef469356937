package devserver

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"github.com/matheus3301/msgr/internal/profile"
)

// Config is the reference server configuration, read from the environment.
type Config struct {
	Addr      string
	DBPath    string
	JWTSecret string
	TokenTTL  time.Duration
	Debug     bool

	// SecretGenerated is set when no secret was configured and a random one
	// was made up; tokens then do not survive a restart.
	SecretGenerated bool
}

// LoadConfig reads MSGRD_* variables, first loading envFile (or ./.env when
// envFile is empty) if it exists.
func LoadConfig(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	} else {
		_ = godotenv.Load(".env")
	}

	ttl, err := time.ParseDuration(getEnv("MSGRD_TOKEN_TTL", "168h"))
	if err != nil {
		return Config{}, fmt.Errorf("MSGRD_TOKEN_TTL: %w", err)
	}
	cfg := Config{
		Addr:      getEnv("MSGRD_ADDR", "127.0.0.1:8787"),
		DBPath:    getEnv("MSGRD_DB", filepath.Join(profile.ServerDir(), "msgrd.db")),
		JWTSecret: getEnv("MSGRD_JWT_SECRET", ""),
		TokenTTL:  ttl,
		Debug:     getEnv("MSGRD_DEBUG", "") == "true",
	}
	if cfg.JWTSecret == "" {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return Config{}, err
		}
		cfg.JWTSecret = hex.EncodeToString(buf)
		cfg.SecretGenerated = true
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
