package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Kind categorizes pipeline failures.
type Kind string

const (
	KindMissingDataFile     Kind = "missing_data_file"
	KindMalformedDataFile   Kind = "malformed_data_file"
	KindMalformedSourcePath Kind = "malformed_source_path"
	KindMissingConfigKey    Kind = "configuration_missing_key"
	KindInvalidConfig       Kind = "invalid_config"
	KindRender              Kind = "render"
	KindAsset               Kind = "asset"
	KindDeploy              Kind = "deploy"
)

// Error codes
const (
	CodeDataFileNotFound = "DATA_NOT_FOUND"
	CodeDataFileParse    = "DATA_PARSE"
	CodeSegmentCount     = "SOURCE_SEGMENTS"
	CodeSiteKeyMissing   = "SITE_KEY_MISSING"
	CodeConfigSchema     = "CONFIG_SCHEMA"
	CodeTemplateRender   = "TEMPLATE_RENDER"
	CodeAssetTransform   = "ASSET_TRANSFORM"
	CodeDeployTransfer   = "DEPLOY_TRANSFER"
)

// PipelineError is a structured error carrying the path, site and key
// involved in a failure.
type PipelineError struct {
	Kind        Kind
	Code        string
	Message     string
	Path        string
	Site        string
	Key         string
	Cause       error
	Recoverable bool
}

// Error implements the error interface.
func (e *PipelineError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}
	if e.Path != "" {
		parts = append(parts, e.Path)
	}
	if e.Site != "" {
		parts = append(parts, "site:"+e.Site)
	}
	if e.Key != "" {
		parts = append(parts, "key:"+e.Key)
	}
	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")
	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *PipelineError) Unwrap() error {
	return e.Cause
}

// Is matches on kind and code.
func (e *PipelineError) Is(target error) bool {
	var t *PipelineError
	if errors.As(target, &t) {
		return e.Kind == t.Kind && e.Code == t.Code
	}

	return false
}

// Severity reports how the failure is surfaced.
func (e *PipelineError) Severity() ErrorSeverity {
	switch e.Kind {
	case KindMissingDataFile, KindMissingConfigKey:
		return ErrorSeverityWarning
	case KindInvalidConfig, KindDeploy:
		return ErrorSeverityFatal
	default:
		return ErrorSeverityError
	}
}

// Sentinels usable with errors.Is.
var (
	ErrMissingDataFile     = &PipelineError{Kind: KindMissingDataFile, Code: CodeDataFileNotFound}
	ErrMalformedDataFile   = &PipelineError{Kind: KindMalformedDataFile, Code: CodeDataFileParse}
	ErrMalformedSourcePath = &PipelineError{Kind: KindMalformedSourcePath, Code: CodeSegmentCount}
	ErrMissingConfigKey    = &PipelineError{Kind: KindMissingConfigKey, Code: CodeSiteKeyMissing}
	ErrInvalidConfig       = &PipelineError{Kind: KindInvalidConfig, Code: CodeConfigSchema}
	ErrRender              = &PipelineError{Kind: KindRender, Code: CodeTemplateRender}
	ErrAsset               = &PipelineError{Kind: KindAsset, Code: CodeAssetTransform}
	ErrDeploy              = &PipelineError{Kind: KindDeploy, Code: CodeDeployTransfer}
)

// NewMissingDataFile reports a locale data file that does not exist.
func NewMissingDataFile(path string, cause error) *PipelineError {
	return &PipelineError{
		Kind:        KindMissingDataFile,
		Code:        CodeDataFileNotFound,
		Message:     "locale data file not found",
		Path:        path,
		Cause:       cause,
		Recoverable: true,
	}
}

// NewMalformedDataFile reports a locale data file that failed to parse.
func NewMalformedDataFile(path string, cause error) *PipelineError {
	return &PipelineError{
		Kind:        KindMalformedDataFile,
		Code:        CodeDataFileParse,
		Message:     "locale data file is malformed",
		Path:        path,
		Cause:       cause,
		Recoverable: true,
	}
}

// NewMalformedSourcePath reports a template path with an unusable segment count.
func NewMalformedSourcePath(path string, segments int) *PipelineError {
	return &PipelineError{
		Kind:        KindMalformedSourcePath,
		Code:        CodeSegmentCount,
		Message:     fmt.Sprintf("template path has %d segments, want 2 (site/page) or 3 (site/lang/page)", segments),
		Path:        path,
		Recoverable: true,
	}
}

// NewMissingConfigKey reports a site without a value for an injected key.
func NewMissingConfigKey(site, key string) *PipelineError {
	return &PipelineError{
		Kind:        KindMissingConfigKey,
		Code:        CodeSiteKeyMissing,
		Message:     "site configuration has no value",
		Site:        site,
		Key:         key,
		Recoverable: true,
	}
}

// NewInvalidConfig reports a schema violation in a configuration document.
func NewInvalidConfig(path, field, message string) *PipelineError {
	return &PipelineError{
		Kind:    KindInvalidConfig,
		Code:    CodeConfigSchema,
		Message: message,
		Path:    path,
		Key:     field,
	}
}

// NewRenderError reports a page that failed to render.
func NewRenderError(path string, cause error) *PipelineError {
	return &PipelineError{
		Kind:        KindRender,
		Code:        CodeTemplateRender,
		Message:     "template render failed",
		Path:        path,
		Cause:       cause,
		Recoverable: true,
	}
}

// NewAssetError reports an asset transform failure.
func NewAssetError(path, message string, cause error) *PipelineError {
	return &PipelineError{
		Kind:    KindAsset,
		Code:    CodeAssetTransform,
		Message: message,
		Path:    path,
		Cause:   cause,
	}
}

// NewDeployError reports a failed transfer.
func NewDeployError(path, message string, cause error) *PipelineError {
	return &PipelineError{
		Kind:    KindDeploy,
		Code:    CodeDeployTransfer,
		Message: message,
		Path:    path,
		Cause:   cause,
	}
}

// IsRecoverable reports whether err is a recoverable pipeline error.
func IsRecoverable(err error) bool {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Recoverable
	}

	return false
}

// KindOf returns the kind of err, or "" when err is not a PipelineError.
func KindOf(err error) Kind {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind
	}

	return ""
}
