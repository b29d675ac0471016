package delisting

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func row(ticker string, open, close float64) PriceChange {
	return PriceChange{
		Ticker:     ticker,
		Name:       "name-" + ticker,
		Open:       open,
		Close:      close,
		Change:     close - open,
		ChangeRate: (close - open) / open * 100,
		Volume:     1000,
		Value:      1000 * close,
	}
}

func TestBackfill_AddsDelisted(t *testing.T) {
	start := []PriceChange{row("A", 100, 101), row("B", 200, 190), row("C", 5000, 4800)}
	ranged := []PriceChange{row("A", 100, 130), row("B", 200, 150)}

	out := Backfill(ranged, start)
	require.Len(t, out, 3)

	assert.Equal(t, ranged, out[:2], "existing rows untouched and first")

	c := out[2]
	assert.Equal(t, "C", c.Ticker)
	assert.Equal(t, "name-C", c.Name)
	assert.Equal(t, 5000.0, c.Open)
	assert.Equal(t, 0.0, c.Close)
	assert.Equal(t, -5000.0, c.Change)
	assert.Equal(t, -100.0, c.ChangeRate)
	assert.Equal(t, 0.0, c.Volume)
	assert.Equal(t, 0.0, c.Value)
}

func TestBackfill_NothingMissing(t *testing.T) {
	start := []PriceChange{row("A", 100, 101), row("B", 200, 190)}
	ranged := []PriceChange{row("B", 200, 150), row("A", 100, 130), row("NEW", 10, 12)}

	out := Backfill(ranged, start)
	assert.Equal(t, ranged, out)
}

func TestBackfill_EmptyRangeUnchanged(t *testing.T) {
	start := []PriceChange{row("A", 100, 101)}

	assert.Nil(t, Backfill(nil, start))
	assert.Empty(t, Backfill([]PriceChange{}, start))
}

func TestBackfill_DoesNotMutateInputs(t *testing.T) {
	start := []PriceChange{row("A", 100, 101), row("C", 50, 40)}
	ranged := make([]PriceChange, 1, 8)
	ranged[0] = row("A", 100, 130)
	startCopy := append([]PriceChange(nil), start...)

	out := Backfill(ranged, start)
	require.Len(t, out, 2)

	assert.Equal(t, startCopy, start)
	assert.Len(t, ranged, 1)
	out[0].Close = -1
	assert.Equal(t, 130.0, ranged[0].Close, "output must not alias the input backing array")
}

func TestEffectiveStart(t *testing.T) {
	sat := time.Date(2019, 6, 29, 0, 0, 0, 0, time.UTC)
	mon := time.Date(2019, 7, 1, 0, 0, 0, 0, time.UTC)
	tue := time.Date(2019, 7, 2, 0, 0, 0, 0, time.UTC)
	fri := time.Date(2019, 6, 28, 0, 0, 0, 0, time.UTC)

	got, ok := EffectiveStart([]time.Time{tue, mon}, sat)
	assert.True(t, ok)
	assert.Equal(t, mon, got)

	got, ok = EffectiveStart([]time.Time{fri, mon}, fri)
	assert.True(t, ok)
	assert.Equal(t, fri, got, "a trading day is its own effective start")

	got, ok = EffectiveStart(nil, sat)
	assert.False(t, ok)
	assert.Equal(t, sat, got)
}
