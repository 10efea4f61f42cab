package utils

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseListParams_Defaults(t *testing.T) {
	lp := ParseListParams(url.Values{})

	assert.Equal(t, "createdAt", lp.SortBy)
	assert.Equal(t, "desc", lp.SortDir)
	assert.Equal(t, DefaultLimit, lp.Limit)
	assert.Equal(t, 0, lp.Offset)
	assert.False(t, lp.HideClosed)
}

func TestParseListParams_Values(t *testing.T) {
	query := url.Values{}
	query.Set("sortBy", "total")
	query.Set("sortDir", "asc")
	query.Set("limit", "50")
	query.Set("offset", "10")
	query.Set("hideClosed", "true")

	lp := ParseListParams(query)

	assert.Equal(t, "total", lp.SortBy)
	assert.Equal(t, "asc", lp.SortDir)
	assert.Equal(t, 50, lp.Limit)
	assert.Equal(t, 10, lp.Offset)
	assert.True(t, lp.HideClosed)
}

func TestParseListParams_LimitCap(t *testing.T) {
	query := url.Values{}
	query.Set("limit", "100000")

	lp := ParseListParams(query)
	assert.Equal(t, MaxLimit, lp.Limit)
}

func TestParseListParams_Garbage(t *testing.T) {
	query := url.Values{}
	query.Set("limit", "abc")
	query.Set("offset", "-5")
	query.Set("sortDir", "sideways")

	lp := ParseListParams(query)
	assert.Equal(t, DefaultLimit, lp.Limit)
	assert.Equal(t, 0, lp.Offset)
	assert.Equal(t, "desc", lp.SortDir)
}

func TestParseOptionalUint64(t *testing.T) {
	v, err := ParseOptionalUint64("")
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = ParseOptionalUint64("42")
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, uint64(42), *v)

	_, err = ParseOptionalUint64("-1")
	assert.Error(t, err)
}

func TestParseOptionalDate(t *testing.T) {
	v, err := ParseOptionalDate("")
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = ParseOptionalDate("2025-03-01")
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, 2025, v.Year())

	v, err = ParseOptionalDate("2025-03-01T10:30:00Z")
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, 10, v.Hour())

	_, err = ParseOptionalDate("01.03.2025")
	assert.Error(t, err)
}

// Дата без времени в верхней границе должна покрывать весь день,
// иначе фильтр created_at <= dateTo выкидывает сам указанный день.
func TestParseOptionalDateEnd(t *testing.T) {
	v, err := ParseOptionalDateEnd("")
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = ParseOptionalDateEnd("2025-03-01")
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, 1, v.Day())
	assert.Equal(t, 23, v.Hour())
	assert.Equal(t, 59, v.Minute())
	assert.True(t, v.After(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)))

	// Явное время не трогаем.
	v, err = ParseOptionalDateEnd("2025-03-01T10:30:00Z")
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, 10, v.Hour())

	_, err = ParseOptionalDateEnd("01.03.2025")
	assert.Error(t, err)
}
