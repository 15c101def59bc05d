package util

import "github.com/roomyhq/roomy-server/internal/domain"

type Envelope map[string]any

func Error(message string) Envelope {
	return Envelope{"error": message}
}

func Data(key string, value any) Envelope {
	return Envelope{key: value}
}

// FieldErrors shapes a validation failure so the editor can show inline
// per-field messages.
func FieldErrors(verr *domain.ValidationError) Envelope {
	return Envelope{
		"error":  "validation failed",
		"fields": verr.Fields,
	}
}
