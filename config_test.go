package clob

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 1024, cfg.BookCapacity)
	assert.Equal(t, 512, cfg.EventQueueCapacity)
	assert.Equal(t, 64, cfg.IterationLimit)
	assert.Equal(t, int64(-200), cfg.MakerFeePpm)
	assert.Equal(t, int64(400), cfg.TakerFeePpm)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("CLOB_BOOK_CAPACITY", "32")
	t.Setenv("CLOB_ITERATION_LIMIT", "8")
	t.Setenv("CLOB_PRICE_BAND_MULTIPLE", "5")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 32, cfg.BookCapacity)
	assert.Equal(t, 8, cfg.IterationLimit)
	assert.Equal(t, int64(5), cfg.PriceBandMultiple)
	assert.Equal(t, 512, cfg.EventQueueCapacity, "untouched values keep defaults")
}
