package archive

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCdxLine(t *testing.T) {
	line := "fr,lemonde)/ 20240522114811 https://www.lemonde.fr/ text/html 200 XXXXX 12345"

	rec, err := ParseCdxLine(line)
	require.NoError(t, err)

	assert.Equal(t, "fr,lemonde)/", rec.URLKey)
	assert.Equal(t, "https://www.lemonde.fr/", rec.Original)
	assert.Equal(t, 200, rec.StatusCode)
	assert.Equal(t, 12345, rec.Length)
	assert.Equal(t, time.Date(2024, 5, 22, 11, 48, 11, 0, time.UTC), rec.Timestamp)
}

func TestParseCdxLine_RoundTrip(t *testing.T) {
	line := "fr,lemonde)/ 20240522114811 https://www.lemonde.fr/ text/html 200 XXXXX 12345"

	rec, err := ParseCdxLine(line)
	require.NoError(t, err)
	assert.Equal(t, line, rec.String())
}

func TestParseCdxLine_WrongFieldCount(t *testing.T) {
	_, err := ParseCdxLine("fr,lemonde)/ 20240522114811 https://www.lemonde.fr/ text/html 200")
	assert.Error(t, err)
}

func TestParseCdxLine_BadTimestamp(t *testing.T) {
	_, err := ParseCdxLine("fr,lemonde)/ not-a-timestamp https://www.lemonde.fr/ text/html 200 XXXXX 12345")
	assert.Error(t, err)
}
