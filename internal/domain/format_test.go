package domain

import (
	"errors"
	"testing"

	"github.com/DRSN-tech/imgshrink/pkg/e"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{in: "JPEG", want: FormatJPEG},
		{in: "jpeg", want: FormatJPEG},
		{in: "jpg", want: FormatJPEG},
		{in: " Png ", want: FormatPNG},
		{in: "webp", want: FormatWEBP},
		{in: "tif", want: FormatTIFF},
		{in: "heic", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, e.ErrUnsupportedFormat))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatProperties(t *testing.T) {
	assert.Equal(t, "jpeg", FormatJPEG.Ext())
	assert.Equal(t, "image/webp", FormatWEBP.ContentType())

	assert.True(t, FormatJPEG.Lossy())
	assert.True(t, FormatWEBP.Lossy())
	assert.False(t, FormatPNG.Lossy())

	assert.False(t, FormatJPEG.SupportsAlpha())
	assert.False(t, FormatBMP.SupportsAlpha())
	assert.True(t, FormatPNG.SupportsAlpha())
}

func TestArtifactFileName(t *testing.T) {
	key := NewArtifactKey("0b7e4c1e-2a57-4a3c-9d0e-1f3a6c2b9e11", FormatJPEG)
	assert.Equal(t, "0b7e4c1e-2a57-4a3c-9d0e-1f3a6c2b9e11.jpeg", key.FileName())

	parsed, ok := ParseArtifactFileName(key.FileName())
	require.True(t, ok)
	assert.Equal(t, key, parsed)

	for _, name := range []string{"README", ".jpeg", "abc.", "abc.JPEG", "abc.jpg", "abc.txt", ".tmp-123"} {
		_, ok := ParseArtifactFileName(name)
		assert.False(t, ok, name)
	}
}
