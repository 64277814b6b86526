package sniffer

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	jpegHead = []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10, 'J', 'F', 'I', 'F'}
	pngHead  = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 13}
	gifHead  = []byte("GIF89a\x01\x00\x01\x00")
	webpHead = []byte("RIFF\x24\x00\x00\x00WEBPVP8 ")
	avifHead = []byte("\x00\x00\x00\x1cftypavif\x00\x00\x00\x00avifmif1")
)

func TestDetectHead(t *testing.T) {
	tests := []struct {
		name string
		head []byte
		want MediaType
		ext  string
	}{
		{"jpeg", jpegHead, TypeJPEG, "jpg"},
		{"png", pngHead, TypePNG, "png"},
		{"gif", gifHead, TypeGIF, "gif"},
		{"webp", webpHead, TypeWEBP, "webp"},
		{"avif", avifHead, TypeAVIF, "avif"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := DetectHead(tt.head)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Type)
			assert.Equal(t, tt.ext, res.Extension())
		})
	}
}

func TestDetectHeadRejectsOtherContent(t *testing.T) {
	for _, head := range [][]byte{
		nil,
		[]byte(`<svg xmlns="http://www.w3.org/2000/svg"></svg>`),
		[]byte("%PDF-1.7"),
		[]byte("plain text"),
	} {
		_, err := DetectHead(head)
		assert.ErrorIs(t, err, ErrUnknownType, "%q", head)
	}
}

func TestDetectReturnsConsumedHead(t *testing.T) {
	body := append(append([]byte{}, pngHead...), bytes.Repeat([]byte{1}, 1024)...)
	r := bytes.NewReader(body)

	res, head, err := Detect(r)
	require.NoError(t, err)
	assert.Equal(t, TypePNG, res.Type)
	assert.Len(t, head, HeadSize)
	assert.Equal(t, len(body)-HeadSize, r.Len())
}

func TestDetectShortInput(t *testing.T) {
	res, head, err := Detect(bytes.NewReader(gifHead))
	require.NoError(t, err)
	assert.Equal(t, TypeGIF, res.Type)
	assert.Equal(t, gifHead, head)
}

func TestCheckDeclared(t *testing.T) {
	jpeg := Result{Type: TypeJPEG, MIME: "image/jpeg"}

	assert.NoError(t, CheckDeclared("", jpeg))
	assert.NoError(t, CheckDeclared("application/octet-stream", jpeg))
	assert.NoError(t, CheckDeclared("image/jpeg", jpeg))
	assert.NoError(t, CheckDeclared("IMAGE/JPEG; charset=binary", jpeg))
	assert.NoError(t, CheckDeclared("image/jpg", jpeg))
	assert.ErrorIs(t, CheckDeclared("image/png", jpeg), ErrDeclaredMismatch)
	assert.ErrorIs(t, CheckDeclared("image/svg+xml", jpeg), ErrDeclaredMismatch)
}
