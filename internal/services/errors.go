package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrCapabilityUnavailable marks a failed enhancement model initialization.
	// Fatal for the job, not for the process: the cache stays cold and the
	// next job retries.
	ErrCapabilityUnavailable = errors.New("enhancement capability unavailable")
	// ErrTranscodeFailed marks a non-zero exit from the transcoding tool. The
	// wrapped error carries the tool's diagnostic output verbatim.
	ErrTranscodeFailed = errors.New("transcode failed")
	// ErrAcquisitionForbidden marks a remote fetch blocked by upstream access
	// control. Its message carries guidance distinct from generic failures.
	ErrAcquisitionForbidden = errors.New("upstream rejected automated access")
	// ErrAcquisitionFailed marks any other remote fetch failure.
	ErrAcquisitionFailed = errors.New("acquisition failed")
	// ErrIO marks workspace or telemetry read/write problems.
	ErrIO = errors.New("io failure")
	// ErrValidation marks rejected job input, such as an unsupported extension
	// or an attenuation level outside its bounds.
	ErrValidation = errors.New("validation error")
	// ErrConfiguration marks unusable configuration.
	ErrConfiguration = errors.New("configuration error")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later status classification. The marker should
// be one of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrIO
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// UserMessage trims the sentinel prefix so surfaces facing users show the
// stage detail rather than the classification label.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	for _, marker := range []error{
		ErrCapabilityUnavailable,
		ErrTranscodeFailed,
		ErrAcquisitionForbidden,
		ErrAcquisitionFailed,
		ErrIO,
		ErrValidation,
		ErrConfiguration,
	} {
		prefix := marker.Error() + ": "
		if strings.HasPrefix(msg, prefix) {
			return strings.TrimPrefix(msg, prefix)
		}
	}
	return msg
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
