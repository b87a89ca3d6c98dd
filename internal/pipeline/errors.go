package pipeline

import (
	"errors"
	"fmt"
)

// Error is a pipeline failure tied to a stage.
//
// Codes:
//   - Store: the store could not be acquired (I/O, schema version)
//   - MetadataLoad: protocol metadata failed to load
//   - TemplateLoad: the template package failed to load
//   - ConfigurationInput: inputs were missing or ambiguous
//   - InputProcessing: one or more inputs failed in analyze/convert
//   - GenerationArtifact: generation produced failed artifacts
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Path is the file the failure concerns, if any.
	Path string

	// Err is the underlying cause.
	Err error
}

// ErrorCode categorizes pipeline errors.
type ErrorCode string

const (
	ErrCodeStore              ErrorCode = "STORE_ERROR"
	ErrCodeMetadataLoad       ErrorCode = "METADATA_LOAD_ERROR"
	ErrCodeTemplateLoad       ErrorCode = "TEMPLATE_LOAD_ERROR"
	ErrCodeConfigurationInput ErrorCode = "CONFIGURATION_INPUT_ERROR"
	ErrCodeInputProcessing    ErrorCode = "INPUT_PROCESSING_ERROR"
	ErrCodeGenerationArtifact ErrorCode = "GENERATION_ARTIFACT_ERROR"
	ErrCodeInvalidMode        ErrorCode = "INVALID_MODE"
)

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Path != "" {
		msg += fmt.Sprintf(" (%s)", e.Path)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

func hasCode(err error, code ErrorCode) bool {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code == code
	}
	return false
}

// IsStoreError reports whether err is a store acquisition failure.
func IsStoreError(err error) bool { return hasCode(err, ErrCodeStore) }

// IsMetadataLoadError reports whether err is a metadata load failure.
func IsMetadataLoadError(err error) bool { return hasCode(err, ErrCodeMetadataLoad) }

// IsTemplateLoadError reports whether err is a template load failure.
func IsTemplateLoadError(err error) bool { return hasCode(err, ErrCodeTemplateLoad) }

// IsConfigurationInputError reports whether err is an input resolution
// failure.
func IsConfigurationInputError(err error) bool { return hasCode(err, ErrCodeConfigurationInput) }

// IsGenerationArtifactError reports whether err is a failed generation.
func IsGenerationArtifactError(err error) bool { return hasCode(err, ErrCodeGenerationArtifact) }

func newStoreError(path string, err error) *Error {
	return &Error{Code: ErrCodeStore, Message: "cannot acquire store", Path: path, Err: err}
}

func newMetadataLoadError(path string, err error) *Error {
	return &Error{Code: ErrCodeMetadataLoad, Message: "protocol metadata failed to load", Path: path, Err: err}
}

func newTemplateLoadError(path string, err error) *Error {
	return &Error{Code: ErrCodeTemplateLoad, Message: "generation templates failed to load", Path: path, Err: err}
}

func newInputError(err error) *Error {
	return &Error{Code: ErrCodeConfigurationInput, Message: "invalid input", Err: err}
}

func newInputProcessingError(failed, total int) *Error {
	return &Error{
		Code:    ErrCodeInputProcessing,
		Message: fmt.Sprintf("%d of %d inputs failed", failed, total),
	}
}

func newGenerationError(outputDir string, failed int, err error) *Error {
	msg := "Generation failed."
	if failed > 0 {
		msg = fmt.Sprintf("Generation failed. %d file(s) could not be generated.", failed)
	}
	return &Error{Code: ErrCodeGenerationArtifact, Message: msg, Path: outputDir, Err: err}
}
