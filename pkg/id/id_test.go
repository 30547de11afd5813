package id

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSortsInCreationOrder(t *testing.T) {
	at := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

	ids := make([]string, 50)
	for i := range ids {
		ids[i] = NewAt(at)
	}
	assert.True(t, sort.StringsAreSorted(ids))
	assert.Len(t, ids[0], 26)
}

func TestTimeRoundTrip(t *testing.T) {
	at := time.Date(2024, 3, 15, 10, 30, 0, 123_000_000, time.UTC)

	got, err := Time(NewAt(at))
	require.NoError(t, err)
	assert.True(t, at.Equal(got))

	_, err = Time("not-a-run-id")
	assert.Error(t, err)
}
