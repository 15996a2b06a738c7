package file

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // PNG decoding
	"math"
	"path"
	"time"

	"github.com/cmlabs-hris/wfm-backend-go/internal/pkg/storage"
	"golang.org/x/image/draw"
)

const (
	photoMaxSize = 150 * 1024
	photoMinSize = 50 * 1024
)

type FileService interface {
	// UploadTickPhoto stores the verification photo of a tick and returns its key.
	UploadTickPhoto(ctx context.Context, shopID string, date time.Time, tickID string, image []byte) (string, error)
	DeleteFile(ctx context.Context, key string) error
}

type fileServiceImpl struct {
	storage storage.FileStorage
}

func NewFileService(storage storage.FileStorage) FileService {
	return &fileServiceImpl{
		storage: storage,
	}
}

// UploadTickPhoto compresses the image to JPEG between 50KB and 150KB and
// writes it to ticks/{shop}/{date}/{tick}.jpg.
func (s *fileServiceImpl) UploadTickPhoto(ctx context.Context, shopID string, date time.Time, tickID string, image []byte) (string, error) {
	compressed, err := compressImage(image, photoMaxSize, photoMinSize)
	if err != nil {
		return "", fmt.Errorf("failed to compress tick photo: %w", err)
	}

	key := TickPhotoKey(shopID, date, tickID)
	uploaded, err := s.storage.Upload(ctx, bytes.NewReader(compressed), int64(len(compressed)), key, "image/jpeg")
	if err != nil {
		return "", fmt.Errorf("failed to upload tick photo: %w", err)
	}
	return uploaded, nil
}

func TickPhotoKey(shopID string, date time.Time, tickID string) string {
	return path.Join("ticks", shopID, date.Format("2006-01-02"), tickID+".jpg")
}

func (s *fileServiceImpl) DeleteFile(ctx context.Context, key string) error {
	return s.storage.Delete(ctx, key)
}

// compressImage re-encodes buffer as JPEG, lowering quality first and then
// scaling down until it fits below maxSize.
func compressImage(buffer []byte, maxSize int, minSize int) ([]byte, error) {
	img, format, err := image.Decode(bytes.NewReader(buffer))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	if format == "jpeg" && len(buffer) <= maxSize && len(buffer) >= minSize {
		return buffer, nil
	}

	var compressed []byte
	for quality := 85; quality >= 50; quality -= 5 {
		compressed, err = encodeJPEG(img, quality)
		if err != nil {
			return nil, err
		}
		if len(compressed) <= maxSize {
			return compressed, nil
		}
	}

	bounds := img.Bounds()
	ratio := math.Sqrt(float64(100*1024) / float64(len(compressed)))
	width := max(int(float64(bounds.Dx())*ratio), 600)
	height := max(int(float64(bounds.Dy())*ratio), 400)

	return encodeJPEG(resizeImage(img, width, height), 70)
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to encode JPEG: %w", err)
	}
	return buf.Bytes(), nil
}

func resizeImage(src image.Image, width, height int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	return dst
}
