// Package usecases contains application business rules.
// Usecases orchestrate entities and depend on port interfaces.
// They contain NO framework code, NO external dependencies - just business logic.
package usecases

import (
	"strings"

	"github.com/0xcro3dile/medicai-go/internal/domain/entities"
)

var supportedMimeTypes = map[string]bool{
	entities.MimePDF:  true,
	entities.MimeDOC:  true,
	entities.MimeDOCX: true,
	entities.MimeText: true,
}

// Validate checks report metadata against the upload policy.
// Rules run in order and the first failure wins: format, then size.
func Validate(meta entities.FileMeta) entities.ValidationState {
	if !supportedMimeTypes[mediaType(meta.MimeType)] {
		return entities.ValidationState{Status: entities.Invalid, Reason: entities.ReasonUnsupportedFormat}
	}
	if meta.SizeBytes > entities.MaxUploadBytes {
		return entities.ValidationState{Status: entities.Invalid, Reason: entities.ReasonTooLarge}
	}
	return entities.ValidationState{Status: entities.Valid}
}

// SupportedMimeTypes returns the accepted report formats.
func SupportedMimeTypes() []string {
	return []string{entities.MimePDF, entities.MimeDOC, entities.MimeDOCX, entities.MimeText}
}

// mediaType strips parameters such as "; charset=utf-8".
func mediaType(mimeType string) string {
	base, _, _ := strings.Cut(mimeType, ";")
	return strings.ToLower(strings.TrimSpace(base))
}
