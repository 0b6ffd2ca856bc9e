package middleware

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/bryanwahyu/plantcare/internal/domain/plants"
)

// Input validation and sanitization utilities

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("sunlight", oneOfOption(plants.SunlightOptions))
	_ = validate.RegisterValidation("watering", oneOfOption(plants.WateringOptions))
}

func oneOfOption(options []string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return slices.Contains(options, fl.Field().String())
	}
}

// AllowedImageTypes are the MIME types accepted for analysis.
var AllowedImageTypes = []string{"image/jpeg", "image/png", "image/webp", "image/heic", "image/heif", "image/gif"}

// AnalyzeForm is the decoded analyze request before it becomes a command.
type AnalyzeForm struct {
	PlantID   string   `validate:"omitempty,max=64"`
	PlantName string   `validate:"omitempty,max=120"`
	Sunlight  string   `validate:"omitempty,sunlight"`
	Watering  string   `validate:"omitempty,watering"`
	Notes     string   `validate:"max=2000"`
	Latitude  *float64 `validate:"omitempty,min=-90,max=90"`
	Longitude *float64 `validate:"omitempty,min=-180,max=180"`
	Organic   bool
	MIMEType  string `validate:"required"`
	ImageSize int    `validate:"gt=0"`
}

// Validate checks the form and returns an error wrapping plants.ErrInvalidArgument.
func (f *AnalyzeForm) Validate() error {
	f.PlantName = SanitizeString(f.PlantName)
	f.Notes = SanitizeString(f.Notes)

	if err := validate.Struct(f); err != nil {
		return fmt.Errorf("%w: %s", plants.ErrInvalidArgument, describe(err))
	}
	if !slices.Contains(AllowedImageTypes, f.MIMEType) {
		return fmt.Errorf("%w: unsupported image type %q", plants.ErrInvalidArgument, f.MIMEType)
	}
	if f.PlantID != "" && f.PlantName != "" {
		return fmt.Errorf("%w: plant_id and plant_name are mutually exclusive", plants.ErrInvalidArgument)
	}
	if (f.Latitude == nil) != (f.Longitude == nil) {
		return fmt.Errorf("%w: latitude and longitude must be sent together", plants.ErrInvalidArgument)
	}
	if f.PlantID != "" {
		if err := ValidatePlantID(f.PlantID); err != nil {
			return err
		}
	}
	return nil
}

// Environment converts the form into per-request growing context. It is nil
// when the client sent nothing.
func (f *AnalyzeForm) Environment() *plants.EnvironmentalData {
	if f.Sunlight == "" && f.Watering == "" && f.Notes == "" && f.Latitude == nil && !f.Organic {
		return nil
	}
	env := &plants.EnvironmentalData{
		Sunlight:          f.Sunlight,
		Watering:          f.Watering,
		Notes:             f.Notes,
		OrganicPreference: f.Organic,
	}
	if f.Latitude != nil && f.Longitude != nil {
		env.Location = &plants.Location{Latitude: *f.Latitude, Longitude: *f.Longitude}
	}
	return env
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return strings.Join(msgs, "; ")
}

var plantIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

// ValidatePlantID validates plant ID format
func ValidatePlantID(id string) error {
	if !plantIDPattern.MatchString(id) {
		return fmt.Errorf("%w: invalid plant ID format", plants.ErrInvalidArgument)
	}
	return nil
}

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	// Remove null bytes
	input = strings.ReplaceAll(input, "\x00", "")

	// Remove control characters
	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}

	return strings.TrimSpace(result.String())
}
