package classifier

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/png"
	"math/rand"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"

	"mcp-glucose-log/internal/catalog"
	"mcp-glucose-log/internal/models"
)

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestParseImage(t *testing.T) {
	raw := testPNG(t, 4, 2)
	b64 := base64.StdEncoding.EncodeToString(raw)

	img, err := ParseImage("data:image/png;base64," + b64)
	if err != nil {
		t.Fatalf("ParseImage(data URI) error: %v", err)
	}
	if img.ContentType != "image/png" {
		t.Errorf("ContentType = %q", img.ContentType)
	}
	ratio, err := img.AspectRatio()
	if err != nil || ratio != 2 {
		t.Errorf("AspectRatio() = %v, %v; want 2", ratio, err)
	}

	img, err = ParseImage(b64)
	if err != nil || img.ContentType != "image/png" {
		t.Errorf("ParseImage(raw) = %q, %v", img.ContentType, err)
	}

	for _, in := range []string{"", "data:image/png,abc", "%%%"} {
		if _, err := ParseImage(in); !errors.Is(err, ErrImageDecode) {
			t.Errorf("ParseImage(%q) error = %v, want ErrImageDecode", in, err)
		}
	}

	notAnImage := Image{Data: []byte("hello world")}
	if _, _, err := notAnImage.Dimensions(); !errors.Is(err, ErrImageDecode) {
		t.Errorf("Dimensions() error = %v", err)
	}
}

func TestFoodGroup(t *testing.T) {
	tests := []struct {
		name    string
		profile visualProfile
		want    string
	}{
		{"fruit", visualProfile{saturation: 0.7, roundness: 0.7, dominantColor: "green", complexity: 0.8}, "apple"},
		{"vegetable", visualProfile{saturation: 0.5, roundness: 0.2, dominantColor: "green", complexity: 0.6}, "broccoli"},
		{"meat", visualProfile{saturation: 0.5, dominantColor: "brown", aspectRatio: 1.2, complexity: 0.3}, "chicken"},
		{"wide brown is not meat", visualProfile{saturation: 0.3, dominantColor: "brown", aspectRatio: 2, brightness: 0.7, complexity: 0.3}, "rice"},
		{"mexican", visualProfile{saturation: 0.3, dominantColor: "red", complexity: 0.5}, "tacos"},
		{"dessert", visualProfile{saturation: 0.5, dominantColor: "red", complexity: 0.8}, "cake"},
		{"fast food", visualProfile{saturation: 0.3, dominantColor: "red", complexity: 0.8}, "burger"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := foodGroup(tt.profile); got[0] != tt.want {
				t.Errorf("foodGroup() = %v, want group starting with %q", got, tt.want)
			}
		})
	}
}

func TestPseudoAlwaysReturnsCatalogFood(t *testing.T) {
	c := catalog.NewDefault()
	p := NewPseudo(c, WithDelay(0), WithRand(rand.New(rand.NewSource(42))))
	img := Image{Data: testPNG(t, 30, 20)}

	for i := 0; i < 200; i++ {
		res, err := p.Classify(context.Background(), img)
		if err != nil {
			t.Fatalf("Classify error: %v", err)
		}
		found := false
		for _, e := range c.Entries() {
			if e.Name == res.FoodName {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("Classify returned %q which is not in the catalog", res.FoodName)
		}
		if len(res.Insights) == 0 || res.Source != "pseudo" {
			t.Fatalf("Classify result incomplete: %+v", res)
		}
	}
}

func TestPseudoUnknownKeyFallsBack(t *testing.T) {
	c := catalog.New([]catalog.Entry{catalog.Unidentified})
	p := NewPseudo(c, WithDelay(0))
	res, err := p.Classify(context.Background(), Image{Data: testPNG(t, 10, 10)})
	if err != nil {
		t.Fatalf("Classify error: %v", err)
	}
	if res.FoodName != catalog.Unidentified.Name || res.Confidence != 0.3 {
		t.Errorf("Classify = %+v, want unidentified food", res)
	}
}

func TestPseudoHonorsCancellation(t *testing.T) {
	p := NewPseudo(catalog.NewDefault(), WithDelay(time.Minute))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Classify(ctx, Image{Data: testPNG(t, 10, 10)}); !errors.Is(err, context.Canceled) {
		t.Errorf("Classify error = %v, want context.Canceled", err)
	}
}

type fakeDetector struct {
	labels []types.Label
	err    error
	input  *rekognition.DetectLabelsInput
}

func (f *fakeDetector) DetectLabels(ctx context.Context, in *rekognition.DetectLabelsInput, _ ...func(*rekognition.Options)) (*rekognition.DetectLabelsOutput, error) {
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	return &rekognition.DetectLabelsOutput{Labels: f.labels}, nil
}

func label(name string, conf float32) types.Label {
	return types.Label{Name: aws.String(name), Confidence: aws.Float32(conf)}
}

func TestRekognitionMatchesLabels(t *testing.T) {
	det := &fakeDetector{labels: []types.Label{
		label("Food", 99),
		label("Plant", 97),
		label("Pizza", 68),
		label("Bread", 80),
	}}
	r := NewRekognition(det, catalog.NewDefault())

	res, err := r.Classify(context.Background(), Image{Data: testPNG(t, 8, 8)})
	if err != nil {
		t.Fatalf("Classify error: %v", err)
	}
	if res.FoodName != "Whole Wheat Bread" {
		t.Errorf("FoodName = %q, want highest-confidence match", res.FoodName)
	}
	if res.Confidence != 0.8 {
		t.Errorf("Confidence = %v", res.Confidence)
	}
	if aws.ToInt32(det.input.MaxLabels) != 10 || aws.ToFloat32(det.input.MinConfidence) != 75 {
		t.Errorf("DetectLabels input = %+v", det.input)
	}
}

func TestRekognitionLowConfidenceInsight(t *testing.T) {
	det := &fakeDetector{labels: []types.Label{label("Pizza", 60)}}
	res, err := NewRekognition(det, catalog.NewDefault()).Classify(context.Background(), Image{Data: testPNG(t, 8, 8)})
	if err != nil {
		t.Fatalf("Classify error: %v", err)
	}
	if res.Insights[0].Title != "Verify identification" {
		t.Errorf("first insight = %+v", res.Insights[0])
	}
}

func TestRekognitionErrors(t *testing.T) {
	img := Image{Data: testPNG(t, 8, 8)}
	c := catalog.NewDefault()

	if _, err := NewRekognition(&fakeDetector{}, c).Classify(context.Background(), img); !errors.Is(err, ErrNoResults) {
		t.Errorf("no labels error = %v", err)
	}
	det := &fakeDetector{labels: []types.Label{label("Table", 99)}}
	if _, err := NewRekognition(det, c).Classify(context.Background(), img); !errors.Is(err, ErrNoMatch) {
		t.Errorf("no match error = %v", err)
	}
	if _, err := NewRekognition(&fakeDetector{}, c).Classify(context.Background(), Image{}); !errors.Is(err, ErrImageDecode) {
		t.Errorf("empty image error = %v", err)
	}
}

type stubClassifier struct {
	name  string
	res   *models.FoodAnalysisResult
	err   error
	calls int
}

func (s *stubClassifier) Name() string { return s.name }

func (s *stubClassifier) Classify(ctx context.Context, img Image) (*models.FoodAnalysisResult, error) {
	s.calls++
	return s.res, s.err
}

func TestChain(t *testing.T) {
	img := Image{Data: testPNG(t, 8, 8)}
	boom := errors.New("boom")

	first := &stubClassifier{name: "first", err: boom}
	second := &stubClassifier{name: "second", res: &models.FoodAnalysisResult{FoodName: "Pizza"}}
	third := &stubClassifier{name: "third", res: &models.FoodAnalysisResult{FoodName: "Never"}}

	res, err := NewChain(first, second, third).Classify(context.Background(), img)
	if err != nil || res.FoodName != "Pizza" {
		t.Fatalf("Chain.Classify = %+v, %v", res, err)
	}
	if third.calls != 0 {
		t.Errorf("third classifier called %d times after a success", third.calls)
	}

	a := &stubClassifier{name: "a", err: ErrNoResults}
	b := &stubClassifier{name: "b", err: boom}
	_, err = NewChain(a, b).Classify(context.Background(), img)
	if !errors.Is(err, ErrAllFailed) || !errors.Is(err, ErrNoResults) || !errors.Is(err, boom) {
		t.Errorf("all-failed error = %v", err)
	}

	if _, err := NewChain().Classify(context.Background(), img); !errors.Is(err, ErrAllFailed) {
		t.Errorf("empty chain error = %v", err)
	}

	decode := &stubClassifier{name: "decode", err: ErrImageDecode}
	after := &stubClassifier{name: "after", res: &models.FoodAnalysisResult{}}
	if _, err := NewChain(decode, after).Classify(context.Background(), img); !errors.Is(err, ErrImageDecode) || after.calls != 0 {
		t.Errorf("decode failure should stop the chain: err = %v, calls = %d", err, after.calls)
	}
}
