// internal/classifier/rekognition.go
package classifier

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"

	"mcp-glucose-log/internal/catalog"
	"mcp-glucose-log/internal/insights"
	"mcp-glucose-log/internal/models"
)

// LabelDetector is the part of the Rekognition client we use.
type LabelDetector interface {
	DetectLabels(ctx context.Context, params *rekognition.DetectLabelsInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectLabelsOutput, error)
}

// Rekognition classifies photos with AWS label detection and maps the labels
// onto catalog foods by keyword.
type Rekognition struct {
	client        LabelDetector
	catalog       *catalog.Catalog
	maxLabels     int32
	minConfidence float32
}

func NewRekognition(client LabelDetector, c *catalog.Catalog) *Rekognition {
	return &Rekognition{
		client:        client,
		catalog:       c,
		maxLabels:     10,
		minConfidence: 75,
	}
}

func NewRekognitionFromRegion(ctx context.Context, region string, c *catalog.Catalog) (*Rekognition, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewRekognition(rekognition.NewFromConfig(cfg), c), nil
}

func (r *Rekognition) Name() string { return "rekognition" }

func (r *Rekognition) Classify(ctx context.Context, img Image) (*models.FoodAnalysisResult, error) {
	if _, _, err := img.Dimensions(); err != nil {
		return nil, err
	}

	out, err := r.client.DetectLabels(ctx, &rekognition.DetectLabelsInput{
		Image:         &types.Image{Bytes: img.Data},
		MaxLabels:     aws.Int32(r.maxLabels),
		MinConfidence: aws.Float32(r.minConfidence),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to detect labels: %w", err)
	}
	if len(out.Labels) == 0 {
		return nil, ErrNoResults
	}

	labels := append([]types.Label(nil), out.Labels...)
	sort.SliceStable(labels, func(i, j int) bool {
		return aws.ToFloat32(labels[i].Confidence) > aws.ToFloat32(labels[j].Confidence)
	})

	for _, l := range labels {
		entry, ok := r.catalog.Match(aws.ToString(l.Name))
		if !ok {
			continue
		}
		confidence := float64(aws.ToFloat32(l.Confidence)) / 100
		result := &models.FoodAnalysisResult{
			FoodName:   entry.Name,
			Category:   entry.Category,
			Confidence: confidence,
			Nutrition:  entry.Nutrition,
			Timestamp:  time.Now().UTC(),
			Source:     r.Name(),
		}
		result.Insights = append(insights.ForConfidence(confidence), insights.Generate(entry.Nutrition, entry.Category)...)
		return result, nil
	}

	return nil, ErrNoMatch
}
