package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port    string
	DBDSN   string
	LogFile string

	SquareAccessToken string
	SquareLocationID  string
	SquareAPIBase     string
	// Outbound request budget against Square, requests per minute.
	SquareRPM int

	SyncIntervalMin int
	// How old the mirror may be before a degraded read is reported as stale.
	MirrorMaxStalenessHours int
	AutoStartJobs           bool
}

func Load() Config {
	// Best-effort; env vars win over .env values.
	_ = godotenv.Load()

	cfg := Config{
		Port:                    getenv("PORT", "8080"),
		DBDSN:                   getenv("DB_DSN", "porchrecords.db"),
		LogFile:                 getenv("LOG_FILE", "./porchrecords.log"),
		SquareAccessToken:       os.Getenv("SQUARE_ACCESS_TOKEN"),
		SquareLocationID:        os.Getenv("SQUARE_LOCATION_ID"),
		SquareAPIBase:           getenv("SQUARE_API_BASE", "https://connect.squareup.com"),
		SquareRPM:               getint("SQUARE_RPM", 60),
		SyncIntervalMin:         getint("SYNC_INTERVAL_MIN", 15),
		MirrorMaxStalenessHours: getint("MIRROR_MAX_STALENESS_HOURS", 24),
		AutoStartJobs:           getbool("AUTO_START_JOBS", true),
	}

	log.Printf("[config] PORT=%s DB_DSN=%s SQUARE_API_BASE=%s SQUARE_RPM=%d SYNC_INTERVAL_MIN=%d",
		cfg.Port, cfg.DBDSN, cfg.SquareAPIBase, cfg.SquareRPM, cfg.SyncIntervalMin)
	return cfg
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getint(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[config] bad %s=%q, using %d", key, v, def)
		return def
	}
	return n
}

func getbool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("[config] bad %s=%q, using %v", key, v, def)
		return def
	}
	return b
}
