package params

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Storage struct {
	// DataDir holds the pebble database with the saved exchange state.
	DataDir string
	LogFile string
}

type Exchange struct {
	// RichestCount is how many wallets the investor report covers.
	RichestCount int
}

type Config struct {
	Storage  Storage
	Exchange Exchange
}

func Default() Config {
	return Config{
		Storage: Storage{
			DataDir: "data",
			LogFile: "data/grnex.log",
		},
		Exchange: Exchange{
			RichestCount: 10,
		},
	}
}

// LoadFromEnv loads configuration from a .env file (if present) and
// environment variables. Priority: ENV > .env file > defaults.
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load() // loads .env from current directory
	}

	if dir := os.Getenv("GRNEX_DATA_DIR"); dir != "" {
		cfg.Storage.DataDir = dir
	}
	if file := os.Getenv("GRNEX_LOG_FILE"); file != "" {
		cfg.Storage.LogFile = file
	}
	if n := os.Getenv("GRNEX_RICHEST_COUNT"); n != "" {
		if count, err := strconv.Atoi(n); err == nil && count > 0 {
			cfg.Exchange.RichestCount = count
		}
	}

	return cfg
}
