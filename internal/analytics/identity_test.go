package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/folio/internal/models"
)

func TestResolveLotID(t *testing.T) {
	single := models.Position{Ticker: "AAPL", LotIDs: []string{"lot-1"}}
	group := models.Position{Ticker: "MSFT", LotIDs: []string{"lot-2", "lot-3"}}

	id, ok := SingleLotID(single)
	require.True(t, ok)
	assert.Equal(t, "lot-1", id)

	_, ok = SingleLotID(group)
	assert.False(t, ok)

	id, err := ResolveLotID(single, "")
	require.NoError(t, err)
	assert.Equal(t, "lot-1", id)

	id, err = ResolveLotID(group, "lot-3")
	require.NoError(t, err)
	assert.Equal(t, "lot-3", id)

	_, err = ResolveLotID(group, "")
	assert.ErrorIs(t, err, models.ErrAmbiguousLot)

	_, err = ResolveLotID(group, "lot-1")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestFindPosition(t *testing.T) {
	positions := []models.Position{{Ticker: "AAPL"}, {Ticker: "MSFT"}}
	p, ok := FindPosition(positions, " msft")
	require.True(t, ok)
	assert.Equal(t, "MSFT", p.Ticker)

	_, ok = FindPosition(positions, "GOOG")
	assert.False(t, ok)
}
