package ioutils

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	_ "image/png" // PNG decoder registration

	"golang.org/x/image/draw"
)

// ImageService provides image processing operations for cover art.
//
// ImageService is used to:
//   - Downscale cover images before embedding them in audio files
//   - Convert images to JPEG format (for better compatibility)
//
// Example usage:
//
//	svc := NewImageService()
//
//	// Download cover art
//	imageData, _ := client.DownloadBytes(ctx, coverURL)
//
//	// Fit the longer edge into 1000px and convert to JPEG
//	cover, _ := svc.ResizeImage(ctx, imageData, 1000)
type ImageService struct{}

// NewImageService creates a new ImageService.
func NewImageService() *ImageService {
	return &ImageService{}
}

// ResizeImage downscales an image so that its longer edge fits maxEdge.
//
// The aspect ratio is preserved. Images already within the limit are not
// scaled but still re-encoded as JPEG.
//
// Parameters:
//   - ctx: Context for cancellation (currently unused)
//   - data: Original image data (JPEG, PNG, etc.)
//   - maxEdge: Maximum width or height in pixels
//
// Returns the resized image as JPEG-encoded bytes.
//
// The Catmull-Rom algorithm is used for high-quality resizing.
//
// Example:
//
//	// Fit within 1000px, maintaining aspect ratio
//	resized, err := svc.ResizeImage(ctx, imageData, 1000)
//	// A 1500x1000 image becomes 1000x667
//	// A 800x600 image remains 800x600 (but re-encoded)
func (s *ImageService) ResizeImage(ctx context.Context, data []byte, maxEdge int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	// Calculate new dimensions maintaining aspect ratio
	if width > maxEdge || height > maxEdge {
		if width > height {
			height = height * maxEdge / width
			width = maxEdge
		} else {
			width = width * maxEdge / height
			height = maxEdge
		}
	}

	// Create new image with calculated dimensions
	dst := image.NewRGBA(image.Rect(0, 0, width, height))

	// Use Catmull-Rom for high-quality scaling
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	// Encode to JPEG with high quality
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 90}); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// ConvertToJPEG converts an image to JPEG format without resizing.
//
// This is useful for:
//   - Ensuring a consistent format for embedded cover art
//   - Reducing file size compared to PNG
//   - Better compatibility with older players
//
// Returns the image as JPEG-encoded bytes with 90% quality.
//
// Note: If the input is already JPEG, it will be re-encoded, which may
// slightly change file size but ensures consistent encoding.
func (s *ImageService) ConvertToJPEG(ctx context.Context, data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
