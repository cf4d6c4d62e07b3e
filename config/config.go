package config

import (
	"log"
	"os"
	"runtime"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	OffersURL   string
	RateURL     string
	AccessToken string

	// QuoteCurrency is the currency listings are requested in; prices
	// quoted in it are divided by the exchange rate, anything else is
	// assumed to already be in the target unit.
	QuoteCurrency string

	PageSize          int
	MaxJobs           int // outer bound: concurrent (location, segment) jobs
	MaxPageFetchers   int // inner bound: concurrent page fetches within one job
	RequestTimeoutSec int
	MaxRetries        int

	DensityMin   float64
	DensityMax   float64
	TrimLowPct   float64
	TrimHighPct  float64
	MinGroupSize int

	CapitalRegion   string
	CapitalRegionID int
	CapitalCityID   int

	LocationsPath string
	OutputDir     string
	LogLevel      string
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "scraper"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "scraper123"),
		PostgresDB:       getEnv("POSTGRES_DB", "housing_db"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		OffersURL:   getEnv("OFFERS_URL", "https://www.olx.uz/api/v1/offers/"),
		RateURL:     getEnv("RATE_URL", "https://cbu.uz/oz/arkhiv-kursov-valyut/json/"),
		AccessToken: getEnv("ACCESS_TOKEN", ""),

		QuoteCurrency: getEnv("QUOTE_CURRENCY", "UZS"),

		PageSize:          getEnvInt("PAGE_SIZE", 50),
		MaxJobs:           getEnvInt("MAX_JOBS", defaultJobs()),
		MaxPageFetchers:   getEnvInt("MAX_PAGE_FETCHERS", 30),
		RequestTimeoutSec: getEnvInt("REQUEST_TIMEOUT_SEC", 60),
		MaxRetries:        getEnvInt("MAX_RETRIES", 3),

		DensityMin:   getEnvFloat("DENSITY_MIN", 100),
		DensityMax:   getEnvFloat("DENSITY_MAX", 1200),
		TrimLowPct:   getEnvFloat("TRIM_LOW_PCT", 0.05),
		TrimHighPct:  getEnvFloat("TRIM_HIGH_PCT", 0.95),
		MinGroupSize: getEnvInt("MIN_GROUP_SIZE", 3),

		CapitalRegion:   getEnv("CAPITAL_REGION", "Tashkent city"),
		CapitalRegionID: getEnvInt("CAPITAL_REGION_ID", 5),
		CapitalCityID:   getEnvInt("CAPITAL_CITY_ID", 4),

		LocationsPath: getEnv("LOCATIONS_PATH", "./locations.yaml"),
		OutputDir:     getEnv("OUTPUT_DIR", "./output"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
	}
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

// defaultJobs leaves one CPU free for the rest of the process.
func defaultJobs() int {
	n := runtime.NumCPU() - 1
	if n < 1 {
		n = 1
	}
	return n
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err == nil {
			return f
		}
	}
	return fallback
}
