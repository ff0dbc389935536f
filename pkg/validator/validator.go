// Package validator provides request validation utilities
package validator

import (
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	once     sync.Once
	validate *validator.Validate
)

// Init initializes the validator with custom validators
func Init() {
	once.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			validate = v

			// Report field names from JSON tags instead of Go names.
			v.RegisterTagNameFunc(func(fld reflect.StructField) string {
				name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
				if name == "-" {
					return ""
				}
				return name
			})

			_ = v.RegisterValidation("severity", validateSeverity)
			_ = v.RegisterValidation("quality_type", validateQualityType)
			_ = v.RegisterValidation("file_format", validateFileFormat)
			_ = v.RegisterValidation("entity_type", validateEntityType)
			_ = v.RegisterValidation("algorithm", validateAlgorithm)
			_ = v.RegisterValidation("window_hours", validateWindowHours)
		}
	})
}

// Get returns the validator instance
func Get() *validator.Validate {
	Init()
	return validate
}

// Custom validators

// validateSeverity checks if a string is a valid severity level
func validateSeverity(fl validator.FieldLevel) bool {
	val := fl.Field().String()
	if val == "" {
		return true // Let required handle empty
	}
	validSeverities := map[string]bool{
		"low":      true,
		"medium":   true,
		"high":     true,
		"critical": true,
	}
	return validSeverities[val]
}

// validateQualityType checks if a string is a valid data-quality issue class
func validateQualityType(fl validator.FieldLevel) bool {
	val := fl.Field().String()
	if val == "" {
		return true
	}
	validTypes := map[string]bool{
		"format_error":   true,
		"missing_fields": true,
		"encoding_issue": true,
		"size_limit":     true,
		"corruption":     true,
		"duplicate_data": true,
	}
	return validTypes[val]
}

// validateFileFormat checks if a string is a supported import file format
func validateFileFormat(fl validator.FieldLevel) bool {
	val := fl.Field().String()
	if val == "" {
		return true // Default to "all"
	}
	validFormats := map[string]bool{
		"all":  true,
		"csv":  true,
		"eml":  true,
		"pst":  true,
		"json": true,
		"xml":  true,
	}
	return validFormats[val]
}

// validateEntityType checks if a string is a recognized entity type
func validateEntityType(fl validator.FieldLevel) bool {
	val := fl.Field().String()
	if val == "" {
		return true // Default to "ALL"
	}
	validTypes := map[string]bool{
		"PERSON": true, "ORG": true, "GPE": true, "MONEY": true,
		"DATE": true, "PRODUCT": true, "EVENT": true, "LAW": true,
		"NORP": true, "FAC": true, "LOC": true, "ALL": true,
	}
	return validTypes[val]
}

// validateAlgorithm checks if a string is a supported detection algorithm
func validateAlgorithm(fl validator.FieldLevel) bool {
	val := fl.Field().String()
	if val == "" {
		return true // Default to dbscan
	}
	return val == "dbscan" || val == "kmeans"
}

// validateWindowHours checks if an int is one of the supported window sizes
func validateWindowHours(fl validator.FieldLevel) bool {
	val := fl.Field().Int()
	if val == 0 {
		return true // Default will be set
	}
	switch val {
	case 1, 6, 12, 24, 48, 168:
		return true
	}
	return false
}
