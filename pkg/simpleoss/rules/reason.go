package rules

import "strings"

// Reason identifies why a URL failed validation. The set is closed.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonInvalidURL
	ReasonInvalidDisk
	ReasonDomainMismatch
	ReasonDomainTypeNotAllowed
	ReasonInvalidPath
	ReasonExtensionNotAllowed
	ReasonExtensionForbidden
	ReasonDirectoryNotAllowed
	ReasonDirectoryForbidden
	ReasonPathPatternMismatch
	ReasonFilenamePatternMismatch
	ReasonFilenameTooLong
	ReasonFileNotFound
	ReasonFileTooSmall
	ReasonFileTooLarge
	ReasonMimeTypeNotAllowed
)

var reasonNames = map[Reason]string{
	ReasonNone:                    "",
	ReasonInvalidURL:              "invalid_url",
	ReasonInvalidDisk:             "invalid_disk",
	ReasonDomainMismatch:          "domain_mismatch",
	ReasonDomainTypeNotAllowed:    "domain_type_not_allowed",
	ReasonInvalidPath:             "invalid_path",
	ReasonExtensionNotAllowed:     "extension_not_allowed",
	ReasonExtensionForbidden:      "extension_forbidden",
	ReasonDirectoryNotAllowed:     "directory_not_allowed",
	ReasonDirectoryForbidden:      "directory_forbidden",
	ReasonPathPatternMismatch:     "path_pattern_mismatch",
	ReasonFilenamePatternMismatch: "filename_pattern_mismatch",
	ReasonFilenameTooLong:         "filename_too_long",
	ReasonFileNotFound:            "file_not_found",
	ReasonFileTooSmall:            "file_too_small",
	ReasonFileTooLarge:            "file_too_large",
	ReasonMimeTypeNotAllowed:      "mime_type_not_allowed",
}

var reasonMessages = map[Reason]string{
	ReasonInvalidURL:              "The :attribute must be a valid URL string.",
	ReasonInvalidDisk:             "The :attribute validation failed: invalid OSS disk configuration.",
	ReasonInvalidPath:             "The :attribute has an invalid path.",
	ReasonDomainMismatch:          "The :attribute does not belong to the configured OSS bucket.",
	ReasonDomainTypeNotAllowed:    "The :attribute domain type is not allowed.",
	ReasonFileNotFound:            "The :attribute does not exist in OSS.",
	ReasonFileTooSmall:            "The :attribute file is too small.",
	ReasonFileTooLarge:            "The :attribute file is too large.",
	ReasonMimeTypeNotAllowed:      "The :attribute file type is not allowed.",
	ReasonExtensionNotAllowed:     "The :attribute file extension is not allowed.",
	ReasonExtensionForbidden:      "The :attribute file extension is forbidden.",
	ReasonDirectoryNotAllowed:     "The :attribute is not in an allowed directory.",
	ReasonDirectoryForbidden:      "The :attribute is in a forbidden directory.",
	ReasonPathPatternMismatch:     "The :attribute path does not match the required pattern.",
	ReasonFilenamePatternMismatch: "The :attribute filename does not match the required pattern.",
	ReasonFilenameTooLong:         "The :attribute filename is too long.",
}

const defaultMessage = "The :attribute is invalid."

// String returns the stable snake_case name of the reason, "" for ReasonNone.
func (r Reason) String() string {
	return reasonNames[r]
}

// Message returns the human-readable failure message with :attribute
// replaced by attribute.
func (r Reason) Message(attribute string) string {
	msg, ok := reasonMessages[r]
	if !ok {
		msg = defaultMessage
	}
	return strings.ReplaceAll(msg, ":attribute", attribute)
}

// ParseReason returns the reason with the given name.
func ParseReason(name string) (Reason, bool) {
	for r, n := range reasonNames {
		if r != ReasonNone && n == name {
			return r, true
		}
	}
	return ReasonNone, false
}
