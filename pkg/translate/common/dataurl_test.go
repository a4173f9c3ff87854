package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDataURL_BuildsBase64Prefix(t *testing.T) {
	t.Parallel()
	url := DataURL("image/png", []byte("hello"))
	assert.Equal(t, "data:image/png;base64,aGVsbG8=", url)
}

func TestEncodeBase64_NoPrefix(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "aGVsbG8=", EncodeBase64([]byte("hello")))
}

func TestSplitDataURL_RoundTripsDataURL(t *testing.T) {
	t.Parallel()
	url := DataURL("image/jpeg", []byte("raw bytes"))

	mimeType, data, ok := SplitDataURL(url)
	require.True(t, ok)
	assert.Equal(t, "image/jpeg", mimeType)
	assert.Equal(t, []byte("raw bytes"), data)
}

func TestSplitDataURL_NotADataURL(t *testing.T) {
	t.Parallel()
	_, _, ok := SplitDataURL("https://example.com/image.png")
	assert.False(t, ok)
}

func TestSplitDataURL_MissingComma(t *testing.T) {
	t.Parallel()
	_, _, ok := SplitDataURL("data:image/png;base64")
	assert.False(t, ok)
}

func TestSplitDataURL_InvalidBase64Payload(t *testing.T) {
	t.Parallel()
	_, _, ok := SplitDataURL("data:image/png;base64,not-valid-base64!!!")
	assert.False(t, ok)
}
