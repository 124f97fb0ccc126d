// internal/classifier/classifier.go
package classifier

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"strings"

	"mcp-glucose-log/internal/models"
)

var (
	ErrImageDecode = errors.New("failed to decode image")
	ErrNoResults   = errors.New("classifier returned no results")
	ErrNoMatch     = errors.New("no catalog food matches the detected labels")
	ErrAllFailed   = errors.New("all classifiers failed")
)

// Classifier maps a meal photo onto a nutrition analysis.
type Classifier interface {
	Name() string
	Classify(ctx context.Context, img Image) (*models.FoodAnalysisResult, error)
}

type Image struct {
	Data        []byte
	ContentType string
}

// ParseImage accepts raw base64 or a data URI ("data:image/jpeg;base64,...").
func ParseImage(s string) (Image, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Image{}, fmt.Errorf("%w: empty image", ErrImageDecode)
	}

	contentType := ""
	if strings.HasPrefix(s, "data:") {
		meta, payload, ok := strings.Cut(s, ",")
		if !ok || !strings.HasSuffix(meta, ";base64") {
			return Image{}, fmt.Errorf("%w: invalid data URI", ErrImageDecode)
		}
		contentType = strings.TrimSuffix(strings.TrimPrefix(meta, "data:"), ";base64")
		s = payload
	}

	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return Image{}, fmt.Errorf("%w: %v", ErrImageDecode, err)
	}
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return Image{Data: data, ContentType: contentType}, nil
}

// Dimensions reads only the image header.
func (img Image) Dimensions() (width, height int, err error) {
	if len(img.Data) == 0 {
		return 0, 0, fmt.Errorf("%w: empty image", ErrImageDecode)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(img.Data))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrImageDecode, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return 0, 0, fmt.Errorf("%w: zero-sized image", ErrImageDecode)
	}
	return cfg.Width, cfg.Height, nil
}

func (img Image) AspectRatio() (float64, error) {
	w, h, err := img.Dimensions()
	if err != nil {
		return 0, err
	}
	return float64(w) / float64(h), nil
}
