// internal/server/tools.go
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ThinkInAIXYZ/go-mcp/protocol"
	"github.com/rs/zerolog/log"

	"mcp-glucose-log/internal/mealstore"
	"mcp-glucose-log/internal/models"
)

type LogMealParams struct {
	Description   string   `json:"description" description:"Description of the meal eaten"`
	Name          string   `json:"name,omitempty" description:"Short meal name (defaults to the description)"`
	Type          string   `json:"type" description:"breakfast, lunch, dinner or snack"`
	Timestamp     string   `json:"timestamp,omitempty" description:"ISO timestamp of when meal was eaten (defaults to now)"`
	Portions      []string `json:"portions,omitempty" description:"Free-text portion descriptions"`
	GlucoseBefore *float64 `json:"glucose_before,omitempty" description:"Pre-meal glucose in mg/dL"`
	GlucoseAfter  *float64 `json:"glucose_after,omitempty" description:"Post-meal glucose in mg/dL"`
	GlucoseLevel  *float64 `json:"glucose_level,omitempty" description:"Reference glucose in mg/dL"`
	TotalCarbs    *float64 `json:"total_carbs,omitempty" description:"Known carbohydrates in grams; skips AI analysis"`
	Answers       []string `json:"answers,omitempty" description:"Answers to earlier clarification questions"`
}

type CalculateCarbsParams struct {
	MealDescription   string   `json:"meal_description" description:"Description of the meal to analyze"`
	AskClarifications bool     `json:"ask_clarifications" description:"Whether to ask clarifying questions if needed"`
	Answers           []string `json:"answers,omitempty" description:"Answers to earlier clarification questions"`
}

type GetMealsParams struct {
	Date        string `json:"date,omitempty" description:"Single day (YYYY-MM-DD); overrides start_date and end_date"`
	StartDate   string `json:"start_date,omitempty" description:"Start date for meal query (YYYY-MM-DD)"`
	EndDate     string `json:"end_date,omitempty" description:"End date for meal query (YYYY-MM-DD, inclusive)"`
	Type        string `json:"type,omitempty" description:"Only meals of this type"`
	AIOnly      bool   `json:"ai_only,omitempty" description:"Only AI-analyzed meals"`
	WithGlucose bool   `json:"with_glucose,omitempty" description:"Only meals with a glucose reading"`
	Limit       int    `json:"limit,omitempty" description:"Maximum number of meals to return"`
}

type UpdateMealParams struct {
	ID            string                  `json:"id" description:"Meal id"`
	Name          *string                 `json:"name,omitempty"`
	Type          *string                 `json:"type,omitempty"`
	Timestamp     *string                 `json:"timestamp,omitempty"`
	Portions      []string                `json:"portions,omitempty"`
	GlucoseBefore *float64                `json:"glucose_before,omitempty"`
	GlucoseAfter  *float64                `json:"glucose_after,omitempty"`
	GlucoseLevel  *float64                `json:"glucose_level,omitempty"`
	TotalCarbs    *float64                `json:"total_carbs,omitempty"`
	Nutrition     *models.NutritionalInfo `json:"nutrition,omitempty"`
}

type MealIDParams struct {
	ID string `json:"id" description:"Meal id"`
}

type MealStatsParams struct {
	StartDate string `json:"start_date,omitempty" description:"Start date (YYYY-MM-DD)"`
	EndDate   string `json:"end_date,omitempty" description:"End date (YYYY-MM-DD, inclusive)"`
	Type      string `json:"type,omitempty" description:"Only meals of this type"`
}

// mealView is a meal plus the values derived from it.
type mealView struct {
	models.Meal
	GlucoseDifference    *float64 `json:"glucose_difference,omitempty"`
	GlucoseInNormalRange *bool    `json:"glucose_in_normal_range,omitempty"`
	CarbsPercentage      *float64 `json:"carbs_percentage,omitempty"`
	IsHighFiber          bool     `json:"is_high_fiber"`
	CalorieCategory      string   `json:"calorie_category,omitempty"`
	NutritionalSummary   string   `json:"nutritional_summary"`
}

func newMealView(m models.Meal) mealView {
	v := mealView{
		Meal:               m,
		IsHighFiber:        m.IsHighFiber(),
		CalorieCategory:    m.CalorieCategory(),
		NutritionalSummary: m.NutritionalSummary(),
	}
	if d, ok := m.GlucoseDifference(); ok {
		v.GlucoseDifference = &d
	}
	if in, ok := m.GlucoseInNormalRange(); ok {
		v.GlucoseInNormalRange = &in
	}
	if pct, ok := m.CarbsPercentage(); ok {
		v.CarbsPercentage = &pct
	}
	return v
}

func newMealViews(meals []models.Meal) []mealView {
	out := make([]mealView, len(meals))
	for i := range meals {
		out[i] = newMealView(meals[i])
	}
	return out
}

// extractParams decodes the request arguments into target.
func extractParams(req *protocol.CallToolRequest, target interface{}) error {
	jsonBytes, err := json.Marshal(req.Arguments)
	if err != nil {
		return fmt.Errorf("%w: failed to marshal arguments: %v", ErrInvalidParams, err)
	}

	if err := json.Unmarshal(jsonBytes, target); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}

	return nil
}

func parseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Now(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid timestamp format: %v", ErrInvalidParams, err)
	}
	return t, nil
}

// parseDateRange turns inclusive YYYY-MM-DD bounds into [from, to). A
// missing bound is returned as the zero time.
func parseDateRange(start, end string) (from, to time.Time, err error) {
	if start != "" {
		if from, err = time.Parse(time.DateOnly, start); err != nil {
			return from, to, fmt.Errorf("%w: invalid start_date: %v", ErrInvalidParams, err)
		}
	}
	if end != "" {
		var d time.Time
		if d, err = time.Parse(time.DateOnly, end); err != nil {
			return from, to, fmt.Errorf("%w: invalid end_date: %v", ErrInvalidParams, err)
		}
		to = d.AddDate(0, 0, 1)
	}
	if !to.IsZero() && !to.After(from) {
		return from, to, fmt.Errorf("%w: end_date before start_date", ErrInvalidParams)
	}
	return from, to, nil
}

func (s *GlucoseLogServer) handleLogMeal(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params LogMealParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}

	if params.Description == "" && params.Name == "" {
		return nil, fmt.Errorf("%w: meal description is required", ErrInvalidParams)
	}
	mealType, err := models.ParseMealType(params.Type)
	if err != nil {
		return nil, err
	}
	timestamp, err := parseTimestamp(params.Timestamp)
	if err != nil {
		return nil, err
	}

	meal := models.Meal{
		Name:          params.Name,
		Type:          mealType,
		Portions:      params.Portions,
		Timestamp:     timestamp,
		GlucoseBefore: params.GlucoseBefore,
		GlucoseAfter:  params.GlucoseAfter,
		GlucoseLevel:  params.GlucoseLevel,
		TotalCarbs:    params.TotalCarbs,
		Source:        models.SourceManual,
	}
	if meal.Name == "" {
		meal.Name = params.Description
	}
	if meal.Portions == nil {
		meal.Portions = []string{}
	}

	var confidence models.ConfidenceLevel
	if params.TotalCarbs == nil && params.Description != "" {
		carbResp, err := s.Estimator.CalculateCarbs(ctx, &models.CarbCalculationRequest{
			MealDescription:   params.Description,
			AskClarifications: true,
		}, params.Answers...)
		if err != nil {
			return nil, fmt.Errorf("failed to calculate carbs: %w", err)
		}

		// Ask once before logging a guess. Answered questions log the
		// estimate as it stands.
		if carbResp.NeedsMoreInfo && len(carbResp.Clarifications) > 0 && len(params.Answers) == 0 {
			return s.createJSONResponse(map[string]interface{}{
				"needs_clarification":  true,
				"clarifications":       carbResp.Clarifications,
				"preliminary_analysis": carbResp,
			})
		}

		total := carbResp.TotalCarbs
		meal.TotalCarbs = &total
		meal.Foods = carbResp.Foods
		meal.IsAIAnalyzed = true
		meal.Source = models.SourceAIParsed
		confidence = carbResp.Confidence
	}

	saved, err := s.Meals.Add(ctx, meal)
	if err != nil {
		return nil, fmt.Errorf("failed to save meal: %w", err)
	}

	resp := map[string]interface{}{
		"meal":     newMealView(saved),
		"insights": s.mealInsights(&saved),
	}
	if confidence != "" {
		resp["confidence"] = confidence
	}
	return s.createJSONResponse(resp)
}

func (s *GlucoseLogServer) handleCalculateCarbs(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params CalculateCarbsParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}

	if params.MealDescription == "" {
		return nil, fmt.Errorf("%w: meal description is required", ErrInvalidParams)
	}

	result, err := s.Estimator.CalculateCarbs(ctx, &models.CarbCalculationRequest{
		MealDescription:   params.MealDescription,
		AskClarifications: params.AskClarifications,
	}, params.Answers...)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate carbs: %w", err)
	}

	return s.createJSONResponse(result)
}

func (s *GlucoseLogServer) handleGetMeals(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params GetMealsParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}

	if params.Limit <= 0 {
		params.Limit = 20
	}
	var q mealstore.Query
	if params.Date != "" {
		day, err := time.Parse(time.DateOnly, params.Date)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid date: %v", ErrInvalidParams, err)
		}
		q = mealstore.OnDate(day)
	} else {
		from, to, err := parseDateRange(params.StartDate, params.EndDate)
		if err != nil {
			return nil, err
		}
		q = mealstore.Query{From: from, To: to}
	}
	if params.Type != "" {
		mealType, err := models.ParseMealType(params.Type)
		if err != nil {
			return nil, err
		}
		q.Type = mealType
	}
	q.AIOnly = params.AIOnly
	q.WithGlucose = params.WithGlucose
	q.Limit = params.Limit

	return s.createJSONResponse(newMealViews(s.Meals.Find(q)))
}

func (s *GlucoseLogServer) handleUpdateMeal(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params UpdateMealParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	if params.ID == "" {
		return nil, fmt.Errorf("%w: id is required", ErrInvalidParams)
	}

	meal, err := s.Meals.Get(params.ID)
	if err != nil {
		return nil, err
	}
	if params.Name != nil {
		meal.Name = *params.Name
	}
	if params.Type != nil {
		if meal.Type, err = models.ParseMealType(*params.Type); err != nil {
			return nil, err
		}
	}
	if params.Timestamp != nil {
		if meal.Timestamp, err = parseTimestamp(*params.Timestamp); err != nil {
			return nil, err
		}
	}
	if params.Portions != nil {
		meal.Portions = params.Portions
	}
	if params.GlucoseBefore != nil {
		meal.GlucoseBefore = params.GlucoseBefore
	}
	if params.GlucoseAfter != nil {
		meal.GlucoseAfter = params.GlucoseAfter
	}
	if params.GlucoseLevel != nil {
		meal.GlucoseLevel = params.GlucoseLevel
	}
	if params.TotalCarbs != nil {
		meal.TotalCarbs = params.TotalCarbs
	}
	if params.Nutrition != nil {
		meal.Nutrition = params.Nutrition
	}

	updated, err := s.Meals.Update(ctx, meal)
	if err != nil {
		return nil, err
	}
	return s.createJSONResponse(newMealView(updated))
}

func (s *GlucoseLogServer) handleDeleteMeal(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params MealIDParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	if params.ID == "" {
		return nil, fmt.Errorf("%w: id is required", ErrInvalidParams)
	}
	if err := s.Meals.Remove(ctx, params.ID); err != nil {
		return nil, err
	}
	return s.createJSONResponse(map[string]interface{}{"deleted": params.ID})
}

func (s *GlucoseLogServer) handleMealStats(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params MealStatsParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	from, to, err := parseDateRange(params.StartDate, params.EndDate)
	if err != nil {
		return nil, err
	}
	q := mealstore.Query{From: from, To: to}
	if params.Type != "" {
		if q.Type, err = models.ParseMealType(params.Type); err != nil {
			return nil, err
		}
	}
	return s.createJSONResponse(s.Meals.Summary(q))
}

func (s *GlucoseLogServer) handleExportMeals(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	data, err := s.Meals.ExportJSON()
	if err != nil {
		return nil, err
	}
	return textResult(string(data)), nil
}

func (s *GlucoseLogServer) registerTools() {
	s.tools = map[string]toolHandler{
		"log_meal":            s.handleLogMeal,
		"calculate_carbs":     s.handleCalculateCarbs,
		"classify_food":       s.handleClassifyFood,
		"accept_analysis":     s.handleAcceptAnalysis,
		"get_meals":           s.handleGetMeals,
		"update_meal":         s.handleUpdateMeal,
		"delete_meal":         s.handleDeleteMeal,
		"meal_stats":          s.handleMealStats,
		"export_meals":        s.handleExportMeals,
		"generate_insights":   s.handleGenerateInsights,
		"scale_nutrition":     s.handleScaleNutrition,
		"classify_glucose":    s.handleClassifyGlucose,
		"list_foods":          s.handleListFoods,
		"get_profile":         s.handleGetProfile,
		"list_profiles":       s.handleListProfiles,
		"save_profile":        s.handleSaveProfile,
		"set_current_profile": s.handleSetCurrentProfile,
		"delete_profile":      s.handleDeleteProfile,
		"reset_profile":       s.handleResetProfile,
	}

	names := make([]string, 0, len(s.tools))
	for name := range s.tools {
		names = append(names, name)
	}
	log.Debug().Str("tools", strings.Join(names, ",")).Msg("registered tools")
}
