// internal/server/tools_nutrition.go
package server

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ThinkInAIXYZ/go-mcp/protocol"
	"github.com/rs/zerolog/log"

	"mcp-glucose-log/internal/catalog"
	"mcp-glucose-log/internal/classifier"
	"mcp-glucose-log/internal/events"
	"mcp-glucose-log/internal/insights"
	"mcp-glucose-log/internal/models"
)

type ClassifyFoodParams struct {
	Image      string `json:"image" description:"Base64 image or data URI (JPEG, PNG or GIF)"`
	StorePhoto bool   `json:"store_photo,omitempty" description:"Archive the photo and return its URL"`
}

type AcceptAnalysisParams struct {
	Analysis     *models.FoodAnalysisResult `json:"analysis" description:"Result returned by classify_food"`
	Type         string                     `json:"type" description:"breakfast, lunch, dinner or snack"`
	PortionGrams float64                    `json:"portion_grams,omitempty" description:"Eaten amount; rescales the nutrition"`
	PhotoURL     string                     `json:"photo_url,omitempty"`
}

type GenerateInsightsParams struct {
	MealID             string                  `json:"meal_id,omitempty" description:"Insights for a logged meal"`
	Nutrition          *models.NutritionalInfo `json:"nutrition,omitempty" description:"Insights for a nutrition record"`
	Category           string                  `json:"category,omitempty" description:"Food category of the nutrition record"`
	GlycemicIndexValue *int                    `json:"glycemic_index_value,omitempty" description:"Numeric glycemic index (0-100); sets the nutrition's bucket"`
}

type ScaleNutritionParams struct {
	Nutrition          models.NutritionalInfo `json:"nutrition"`
	Factor             *float64               `json:"factor,omitempty" description:"Multiplier for every macro"`
	PortionGrams       *float64               `json:"portion_grams,omitempty" description:"Target portion size in grams"`
	GlycemicIndexValue *int                   `json:"glycemic_index_value,omitempty" description:"Numeric glycemic index (0-100); sets the nutrition's bucket"`
}

type ClassifyGlucoseParams struct {
	Value float64 `json:"value" description:"Glucose reading"`
	Units string  `json:"units,omitempty" description:"mg/dL (default) or mmol/L"`
}

type ListFoodsParams struct {
	Category string `json:"category,omitempty"`
	Key      string `json:"key,omitempty"`
}

func (s *GlucoseLogServer) handleClassifyFood(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params ClassifyFoodParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	img, err := classifier.ParseImage(params.Image)
	if err != nil {
		return nil, err
	}

	result, err := s.Classifier.Classify(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("failed to classify food: %w", err)
	}

	photoURL := ""
	if params.StorePhoto && s.Photos != nil {
		photoURL, err = s.Photos.Put(ctx, img)
		if err != nil {
			// The analysis is still usable without the archived photo.
			log.Warn().Err(err).Msg("failed to archive meal photo")
		}
	}

	return s.createJSONResponse(map[string]interface{}{
		"analysis":  result,
		"photo_url": photoURL,
	})
}

func (s *GlucoseLogServer) handleAcceptAnalysis(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params AcceptAnalysisParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	if params.Analysis == nil || params.Analysis.FoodName == "" {
		return nil, fmt.Errorf("%w: analysis is required", ErrInvalidParams)
	}
	mealType, err := models.ParseMealType(params.Type)
	if err != nil {
		return nil, err
	}

	meal, err := s.Meals.AddFromAnalysis(ctx, params.Analysis, mealType, params.PortionGrams, params.PhotoURL)
	if err != nil {
		return nil, err
	}
	s.Bus.Publish(events.NavigateToInsights)

	return s.createJSONResponse(map[string]interface{}{
		"meal":     newMealView(meal),
		"insights": s.mealInsights(&meal),
	})
}

// prepareNutrition buckets an optional numeric GI into n, then validates n.
func prepareNutrition(n *models.NutritionalInfo, giValue *int) error {
	if giValue != nil {
		gi, err := models.GlycemicIndexFor(*giValue)
		if err != nil {
			return err
		}
		n.GlycemicIndex = gi
	}
	return n.Validate()
}

// mealInsights judges a meal against the current profile's target range.
func (s *GlucoseLogServer) mealInsights(m *models.Meal) []models.HealthInsight {
	target := models.NormalRange
	if p, err := s.Profiles.Current(); err == nil {
		target = p.TargetRange()
	}
	return insights.ForMeal(m, target)
}

func (s *GlucoseLogServer) handleGenerateInsights(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params GenerateInsightsParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}

	switch {
	case params.MealID != "":
		meal, err := s.Meals.Get(params.MealID)
		if err != nil {
			return nil, err
		}
		return s.createJSONResponse(s.mealInsights(&meal))
	case params.Nutrition != nil:
		if err := prepareNutrition(params.Nutrition, params.GlycemicIndexValue); err != nil {
			return nil, err
		}
		category := models.FoodCategory(strings.ToLower(params.Category))
		if category == "" {
			category = models.CategoryOther
		}
		if !category.Valid() {
			return nil, fmt.Errorf("%w: unknown category %q", ErrInvalidParams, params.Category)
		}
		return s.createJSONResponse(insights.Generate(*params.Nutrition, category))
	}
	return nil, fmt.Errorf("%w: meal_id or nutrition is required", ErrInvalidParams)
}

func (s *GlucoseLogServer) handleScaleNutrition(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params ScaleNutritionParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}

	if err := prepareNutrition(&params.Nutrition, params.GlycemicIndexValue); err != nil {
		return nil, err
	}

	var scaled models.NutritionalInfo
	var err error
	switch {
	case params.Factor != nil:
		scaled, err = params.Nutrition.Scale(*params.Factor)
	case params.PortionGrams != nil:
		scaled, err = params.Nutrition.ScaleToPortion(*params.PortionGrams)
	default:
		return nil, fmt.Errorf("%w: factor or portion_grams is required", ErrInvalidParams)
	}
	if err != nil {
		return nil, err
	}

	return s.createJSONResponse(map[string]interface{}{
		"nutrition":      scaled,
		"glycemic_load":  scaled.GlycemicLoad(),
		"glucose_impact": scaled.GlucoseImpact(),
	})
}

func (s *GlucoseLogServer) handleClassifyGlucose(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params ClassifyGlucoseParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	if params.Value <= 0 {
		return nil, fmt.Errorf("%w: value must be positive", ErrInvalidParams)
	}

	mgdl := params.Value
	switch params.Units {
	case "", models.UnitsMgDL:
	case models.UnitsMmolL:
		mgdl = models.MmolLToMgDL(params.Value)
	default:
		return nil, fmt.Errorf("%w: unknown units %q", ErrInvalidParams, params.Units)
	}

	target := models.NormalRange
	if p, err := s.Profiles.Current(); err == nil {
		target = p.TargetRange()
	}
	reading := models.GlucoseReading{Value: mgdl, Timestamp: time.Now().UTC()}

	return s.createJSONResponse(map[string]interface{}{
		"mg_dl":          mgdl,
		"mmol_l":         models.MgDLToMmolL(mgdl),
		"classification": reading.Classification(),
		"in_target":      target.Contains(mgdl),
		"target":         target,
	})
}

func (s *GlucoseLogServer) handleListFoods(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params ListFoodsParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}

	if params.Key != "" {
		entry, err := s.Catalog.Lookup(params.Key)
		if err != nil {
			return nil, err
		}
		return s.createJSONResponse(entry)
	}

	var entries []catalog.Entry
	if params.Category != "" {
		category := models.FoodCategory(strings.ToLower(params.Category))
		if !category.Valid() {
			return nil, fmt.Errorf("%w: unknown category %q", ErrInvalidParams, params.Category)
		}
		entries = s.Catalog.ByCategory(category)
	} else {
		entries = s.Catalog.Entries()
	}
	if entries == nil {
		entries = []catalog.Entry{}
	}
	return s.createJSONResponse(entries)
}
