// internal/server/estimator.go
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/chains"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/prompts"

	"mcp-glucose-log/internal/models"
)

const carbPrompt = `You are a nutrition expert specializing in carbohydrate counting for diabetes management.

When analyzing meals, provide accurate carbohydrate estimates and identify when more information is needed.

IMPORTANT: Always respond with valid JSON in this exact format:
{
  "foods": [
    {
      "name": "specific food item name",
      "quantity": "estimated portion size with units",
      "carbs_per_100g": [number],
      "estimated_carbs": [number],
      "confidence": "high|medium|low"
    }
  ],
  "total_carbs": [number],
  "confidence": "high|medium|low",
  "clarifications": ["specific question1", "specific question2"],
  "needs_more_info": [true/false]
}

Analyze this meal and calculate carbohydrates: "{{.description}}"
{{.details}}
Provide detailed breakdown of each food item, realistic portion estimates, and total carbohydrates.{{.clarify}}`

const clarifyInstructions = `

If the description lacks specific details about:
- Portion sizes (small, medium, large, or specific measurements)
- Preparation methods that affect carbs
- Specific varieties that have different carb contents

Then set "needs_more_info" to true and include specific clarifying questions in the "clarifications" array.`

// CarbEstimator asks an LLM for a JSON carbohydrate breakdown of a meal
// description.
type CarbEstimator struct {
	chain *chains.LLMChain
}

func NewCarbEstimator(llm llms.Model) *CarbEstimator {
	return &CarbEstimator{
		chain: chains.NewLLMChain(llm, prompts.NewPromptTemplate(carbPrompt, []string{"description", "details", "clarify"})),
	}
}

// NewOpenRouterEstimator talks to any OpenAI-compatible endpoint.
func NewOpenRouterEstimator(cfg LLMConfig) (*CarbEstimator, error) {
	llm, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithToken(cfg.APIKey),
		openai.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	return NewCarbEstimator(llm), nil
}

// CalculateCarbs returns the model's breakdown. answers are the user's
// replies to earlier clarification questions. A nil estimator or an
// unparseable reply yields the low-confidence fallback.
func (e *CarbEstimator) CalculateCarbs(ctx context.Context, req *models.CarbCalculationRequest, answers ...string) (*models.CarbCalculationResponse, error) {
	if e == nil || e.chain == nil {
		log.Warn().Msg("no LLM configured, returning fallback carb estimate")
		return createFallbackResponse(), nil
	}

	details := ""
	if len(answers) > 0 {
		details = "Additional details from the user: " + strings.Join(answers, "; ")
	}
	clarify := ""
	if req.AskClarifications {
		clarify = clarifyInstructions
	}

	out, err := chains.Call(ctx, e.chain, map[string]any{
		"description": req.MealDescription,
		"details":     details,
		"clarify":     clarify,
	}, chains.WithTemperature(0.1), chains.WithMaxTokens(2000))
	if err != nil {
		return nil, fmt.Errorf("failed to get AI completion: %w", err)
	}

	text, _ := out[e.chain.OutputKey].(string)
	return parseAIResponse(text), nil
}

// parseAIResponse decodes the JSON object between the first "{" and the
// last "}" of the reply.
func parseAIResponse(content string) *models.CarbCalculationResponse {
	start := strings.Index(content, "{")
	if start == -1 {
		return createFallbackResponse()
	}

	end := strings.LastIndex(content, "}")
	if end == -1 || end <= start {
		return createFallbackResponse()
	}

	var response models.CarbCalculationResponse
	if err := json.Unmarshal([]byte(content[start:end+1]), &response); err != nil {
		log.Warn().Err(err).Msg("failed to parse carb estimate")
		return createFallbackResponse()
	}
	if response.Foods == nil {
		response.Foods = []models.Food{}
	}

	return &response
}

func createFallbackResponse() *models.CarbCalculationResponse {
	return &models.CarbCalculationResponse{
		Foods: []models.Food{
			{
				Name:           "Analysis unavailable",
				Quantity:       "unknown",
				CarbsPer100g:   0,
				EstimatedCarbs: 20.0,
				Confidence:     models.LowConfidence,
			},
		},
		TotalCarbs:    20.0,
		Confidence:    models.LowConfidence,
		NeedsMoreInfo: true,
		Clarifications: []string{
			"What was the portion size (small, medium, large, or grams)?",
			"How was the food prepared?",
			"Were there any sides, sauces or toppings?",
		},
	}
}
