package clob

import (
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config carries the engine-wide defaults. Per-market values from
// CreateMarketRequest take precedence; these are the fallbacks.
type Config struct {
	// BookCapacity is the default maximum number of resting orders per side.
	BookCapacity int `env:"CLOB_BOOK_CAPACITY" envDefault:"1024"`

	// EventQueueCapacity is the default maximum number of unconsumed events.
	EventQueueCapacity int `env:"CLOB_EVENT_QUEUE_CAPACITY" envDefault:"512"`

	// IterationLimit bounds the number of resting orders one placement may
	// visit while matching.
	IterationLimit int `env:"CLOB_ITERATION_LIMIT" envDefault:"64"`

	MakerFeePpm int64 `env:"CLOB_MAKER_FEE_PPM" envDefault:"-200"`
	TakerFeePpm int64 `env:"CLOB_TAKER_FEE_PPM" envDefault:"400"`

	// OracleMaxStalenessSlots rejects oracle snapshots older than this many
	// slots. Zero disables the check.
	OracleMaxStalenessSlots uint64 `env:"CLOB_ORACLE_MAX_STALENESS_SLOTS" envDefault:"600"`

	// PriceBandMultiple rejects limit prices further than this multiple away
	// from the oracle reference price. Zero disables the band.
	PriceBandMultiple int64 `env:"CLOB_PRICE_BAND_MULTIPLE" envDefault:"0"`
}

// DefaultConfig returns the built-in defaults without consulting the
// environment.
func DefaultConfig() Config {
	return Config{
		BookCapacity:            1024,
		EventQueueCapacity:      512,
		IterationLimit:          64,
		MakerFeePpm:             -200,
		TakerFeePpm:             400,
		OracleMaxStalenessSlots: 600,
	}
}

// LoadConfig reads configuration from the environment, with an optional .env
// file. Priority: process env > .env file > defaults.
func LoadConfig() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
