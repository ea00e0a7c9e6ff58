package storage

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestDecodeScreenshot(t *testing.T) {
	enc := base64.StdEncoding.EncodeToString(pngHeader)

	data, err := decodeScreenshot([]byte(enc))
	require.NoError(t, err)
	assert.Equal(t, pngHeader, data)

	data, err = decodeScreenshot([]byte("data:image/png;base64," + enc))
	require.NoError(t, err)
	assert.Equal(t, pngHeader, data)

	data, err = decodeScreenshot([]byte(strings.TrimRight(enc, "=")))
	require.NoError(t, err)
	assert.Equal(t, pngHeader, data)

	_, err = decodeScreenshot([]byte("  "))
	assert.ErrorIs(t, err, ErrEmptyScreenshot)

	_, err = decodeScreenshot([]byte("!!not base64!!"))
	assert.Error(t, err)
}

func TestObjectNameFor(t *testing.T) {
	ts := time.Date(2024, 3, 1, 9, 5, 7, 0, time.UTC)
	name := objectNameFor("lab/pc 1", ts, "image/png")
	assert.True(t, strings.HasPrefix(name, "lab_pc_1/2024/03/01/090507_"), name)
	assert.True(t, strings.HasSuffix(name, ".png"), name)
	assert.True(t, strings.HasSuffix(objectNameFor("pc", ts, "image/jpeg"), ".jpg"))
}

func TestValidObjectKey(t *testing.T) {
	assert.True(t, validObjectKey("pc-1/2024/03/01/090507_ab12cd34.png"))
	assert.False(t, validObjectKey(""))
	assert.False(t, validObjectKey("/pc-1/a.png"))
	assert.False(t, validObjectKey("pc-1/../secret.png"))
	assert.False(t, validObjectKey("pc-1//a.png"))
}
