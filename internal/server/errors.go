// internal/server/errors.go
package server

import (
	"errors"
	"net/http"

	"mcp-glucose-log/internal/catalog"
	"mcp-glucose-log/internal/classifier"
	"mcp-glucose-log/internal/mealstore"
	"mcp-glucose-log/internal/models"
	"mcp-glucose-log/internal/photos"
	"mcp-glucose-log/internal/profiles"
)

var (
	ErrInvalidParams = errors.New("invalid parameters")
	ErrUnknownTool   = errors.New("unknown tool")
)

var badRequest = []error{
	ErrInvalidParams,
	models.ErrInvalidMeal,
	models.ErrInvalidMealType,
	models.ErrInvalidProfile,
	models.ErrInvalidNutrition,
	models.ErrInvalidGlycemicIndex,
	models.ErrInvalidScaleFactor,
	classifier.ErrImageDecode,
	photos.ErrEmptyPhoto,
}

var notFound = []error{
	ErrUnknownTool,
	mealstore.ErrMealNotFound,
	profiles.ErrProfileNotFound,
	profiles.ErrNoCurrent,
	catalog.ErrUnknownFood,
}

func statusFor(err error) int {
	for _, target := range badRequest {
		if errors.Is(err, target) {
			return http.StatusBadRequest
		}
	}
	for _, target := range notFound {
		if errors.Is(err, target) {
			return http.StatusNotFound
		}
	}
	return http.StatusInternalServerError
}
