package util

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2024-10-10T10:10:10Z"
	got, ok := ParseTime(s)
	require.True(t, ok)
	assert.Equal(t, s, got.UTC().Format(time.RFC3339))
}

func TestParseTimeNaive(t *testing.T) {
	got, ok := ParseTime("2024-10-10T10:10:10.123456")
	require.True(t, ok)
	assert.Equal(t, 10, got.Hour())
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	require.True(t, ok)
	assert.Equal(t, ts, got.Unix())
}

func TestParseAndFormatDate(t *testing.T) {
	d, err := ParseDate("2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01", FormatDate(d))
	assert.Equal(t, "", FormatDate(time.Time{}))

	_, err = ParseDate("2024/03/01")
	assert.Error(t, err)
}

func TestSplitCSV(t *testing.T) {
	assert.Equal(t, []string{"a:9092", "b:9092"}, SplitCSV(" a:9092, ,b:9092 "))
	assert.Nil(t, SplitCSV(""))
}

func TestTruncateDay(t *testing.T) {
	got := TruncateDay(time.Date(2024, 3, 31, 15, 4, 5, 0, time.UTC))
	assert.Equal(t, time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC), got)
}
