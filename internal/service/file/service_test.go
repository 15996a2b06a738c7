package file

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"testing"
	"time"

	"github.com/cmlabs-hris/wfm-backend-go/internal/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngImage(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), uint8(x ^ y), 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestTickPhotoKey(t *testing.T) {
	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "ticks/shop-1/2024-03-15/tick-1.jpg", TickPhotoKey("shop-1", date, "tick-1"))
}

func TestCompressImage_OutputsJPEG(t *testing.T) {
	out, err := compressImage(pngImage(t, 64, 64), photoMaxSize, photoMinSize)
	require.NoError(t, err)

	_, err = jpeg.Decode(bytes.NewReader(out))
	assert.NoError(t, err)
	assert.LessOrEqual(t, len(out), photoMaxSize)
}

func TestCompressImage_RejectsGarbage(t *testing.T) {
	_, err := compressImage([]byte("not an image"), photoMaxSize, photoMinSize)
	assert.Error(t, err)
}

func TestUploadTickPhoto(t *testing.T) {
	local, err := storage.NewLocalStorage(t.TempDir(), "http://files.local")
	require.NoError(t, err)
	svc := NewFileService(local)
	ctx := context.Background()
	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	key, err := svc.UploadTickPhoto(ctx, "shop-1", date, "tick-1", pngImage(t, 32, 32))
	require.NoError(t, err)

	rc, err := local.Download(ctx, key)
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	_, err = jpeg.Decode(bytes.NewReader(body))
	assert.NoError(t, err)

	require.NoError(t, svc.DeleteFile(ctx, key))
	exists, err := local.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, exists)
}
