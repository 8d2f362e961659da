// Tunegraph - Music Taste Matching and Community Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunegraph

package validation

import (
	"strings"
	"testing"

	"github.com/tomtom215/tunegraph/internal/models"
)

type profileRequest struct {
	Nickname string          `json:"nickname" validate:"required,min=1,max=50,nickname"`
	Bio      string          `json:"bio" validate:"max=500"`
	Genre    string          `json:"genre" validate:"omitempty,genre"`
	Mode     string          `json:"mode" validate:"omitempty,oneof=full incremental"`
	Artists  []models.Artist `json:"artists" validate:"max=3,dive"`
}

func TestGetValidator_Singleton(t *testing.T) {
	if GetValidator() != GetValidator() {
		t.Error("GetValidator() returned different instances")
	}
}

func TestValidateStruct_Valid(t *testing.T) {
	req := profileRequest{
		Nickname: "Jo",
		Mode:     "full",
		Artists:  []models.Artist{{ID: "a1", Name: "Alpha", Popularity: 50, Genres: []string{"rock"}}},
	}
	if err := ValidateStruct(&req); err != nil {
		t.Errorf("ValidateStruct() = %v, want nil", err)
	}
}

func TestValidateStruct_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		req       profileRequest
		wantField string
		wantTag   string
	}{
		{"missing nickname", profileRequest{}, "nickname", "required"},
		{"padded nickname", profileRequest{Nickname: " Jo "}, "nickname", "nickname"},
		{"long bio", profileRequest{Nickname: "Jo", Bio: strings.Repeat("x", 501)}, "bio", "max"},
		{"blank genre", profileRequest{Nickname: "Jo", Genre: "   "}, "genre", "genre"},
		{"bad mode", profileRequest{Nickname: "Jo", Mode: "weekly"}, "mode", "oneof"},
		{
			"nested artist name",
			profileRequest{Nickname: "Jo", Artists: []models.Artist{{ID: "a1"}}},
			"artists[0].name", "required",
		},
		{
			"artist popularity",
			profileRequest{Nickname: "Jo", Artists: []models.Artist{{ID: "a1", Name: "A", Popularity: 101}}},
			"artists[0].popularity", "max",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(&tt.req)
			if err == nil {
				t.Fatal("ValidateStruct() = nil, want error")
			}
			f := err.Fields[0]
			if f.Field != tt.wantField || f.Tag != tt.wantTag {
				t.Errorf("first error = %s/%s, want %s/%s", f.Field, f.Tag, tt.wantField, tt.wantTag)
			}
		})
	}
}

func TestToAPIError_SingleError(t *testing.T) {
	err := ValidateStruct(&profileRequest{})
	apiErr := err.ToAPIError()

	if apiErr.Code != CodeValidationError {
		t.Errorf("Code = %q", apiErr.Code)
	}
	if apiErr.Message != "nickname is required" {
		t.Errorf("Message = %q", apiErr.Message)
	}
	if apiErr.Details["field"] != "nickname" {
		t.Errorf("Details = %v", apiErr.Details)
	}
}

func TestToAPIError_MultipleErrors(t *testing.T) {
	err := ValidateStruct(&profileRequest{Bio: strings.Repeat("x", 501), Mode: "x"})
	apiErr := err.ToAPIError()

	fields, ok := apiErr.Details["fields"].([]map[string]interface{})
	if !ok || len(fields) != 3 {
		t.Fatalf("Details[fields] = %v, want 3 entries", apiErr.Details["fields"])
	}
	for _, want := range []string{"nickname is required", "bio must be at most 500 characters", "mode must be one of"} {
		if !strings.Contains(apiErr.Message, want) {
			t.Errorf("Message %q missing %q", apiErr.Message, want)
		}
	}
}

func TestErrorMessages_Units(t *testing.T) {
	req := profileRequest{Nickname: "Jo", Artists: make([]models.Artist, 4)}
	for i := range req.Artists {
		req.Artists[i] = models.Artist{ID: "a", Name: "n"}
	}
	err := ValidateStruct(&req)
	if err == nil {
		t.Fatal("expected error")
	}
	if got := err.Fields[0].Message; got != "artists must be at most 3 items" {
		t.Errorf("Message = %q", got)
	}
}
