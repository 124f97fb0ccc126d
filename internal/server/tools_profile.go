// internal/server/tools_profile.go
package server

import (
	"context"
	"fmt"

	"github.com/ThinkInAIXYZ/go-mcp/protocol"

	"mcp-glucose-log/internal/models"
)

type SaveProfileParams struct {
	Profile models.UserProfile `json:"profile"`
	AsNew   bool               `json:"as_new,omitempty" description:"Add a new profile instead of updating the current one"`
}

type ProfileIDParams struct {
	ID string `json:"id"`
}

type ResetProfileParams struct {
	IncludeMeals bool `json:"include_meals,omitempty" description:"Also clear the meal log"`
}

type profileView struct {
	Profile     models.UserProfile  `json:"profile"`
	TargetRange models.GlucoseRange `json:"target_range"`
	BMI         float64             `json:"bmi,omitempty"`
	BMICategory string              `json:"bmi_category,omitempty"`
}

func viewOf(p models.UserProfile) profileView {
	v := profileView{Profile: p, TargetRange: p.TargetRange()}
	if bmi, err := p.BMI(); err == nil {
		v.BMI = bmi
		v.BMICategory = models.BMICategory(bmi)
	}
	return v
}

func (s *GlucoseLogServer) handleGetProfile(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	p, err := s.Profiles.Current()
	if err != nil {
		return nil, err
	}
	return s.createJSONResponse(viewOf(p))
}

func (s *GlucoseLogServer) handleListProfiles(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	list := s.Profiles.List()
	current, _ := s.Profiles.Current()
	return s.createJSONResponse(map[string]interface{}{
		"profiles":   list,
		"current_id": current.ID,
	})
}

func (s *GlucoseLogServer) handleSaveProfile(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var mode struct {
		AsNew bool `json:"as_new"`
	}
	if err := extractParams(req, &mode); err != nil {
		return nil, err
	}

	// Decode over the current profile, or the onboarding defaults for a new
	// one, so omitted fields keep their values.
	base := models.NewUserProfile("", 0)
	current, err := s.Profiles.Current()
	update := err == nil && !mode.AsNew
	if update {
		base = current
	}
	params := SaveProfileParams{Profile: base}
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}

	var p models.UserProfile
	if update {
		p, err = s.Profiles.UpdateCurrent(ctx, params.Profile)
	} else {
		params.Profile.ID = ""
		p, err = s.Profiles.Add(ctx, params.Profile)
	}
	if err != nil {
		return nil, err
	}
	return s.createJSONResponse(viewOf(p))
}

func (s *GlucoseLogServer) handleSetCurrentProfile(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params ProfileIDParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	if params.ID == "" {
		return nil, fmt.Errorf("%w: id is required", ErrInvalidParams)
	}
	p, err := s.Profiles.SetCurrent(ctx, params.ID)
	if err != nil {
		return nil, err
	}
	return s.createJSONResponse(viewOf(p))
}

func (s *GlucoseLogServer) handleDeleteProfile(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params ProfileIDParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	if params.ID == "" {
		return nil, fmt.Errorf("%w: id is required", ErrInvalidParams)
	}
	if err := s.Profiles.Delete(ctx, params.ID); err != nil {
		return nil, err
	}
	return s.createJSONResponse(map[string]interface{}{"deleted": params.ID})
}

func (s *GlucoseLogServer) handleResetProfile(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params ResetProfileParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	if err := s.Profiles.Reset(ctx); err != nil {
		return nil, err
	}
	if params.IncludeMeals {
		if err := s.Meals.Clear(ctx); err != nil {
			return nil, err
		}
	}
	return s.createJSONResponse(map[string]interface{}{"reset": true, "meals_cleared": params.IncludeMeals})
}
