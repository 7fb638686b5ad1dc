package protocol

import (
	"strings"

	"github.com/blindftp/blindftp/bferrors"
)

// ForbiddenExtensions marks files still in flight on the sender's
// filesystem, ported from original_source/bftp_utils.py's IgnoreExtensions.
var ForbiddenExtensions = []string{".part", ".tmp", ".ut", ".dlm"}

// ValidatePath enforces spec.md §4.1's forbidden-path policy: a name
// must not be empty, absolute, contain a ".." component after splitting
// on either path separator, or end in a banned extension. It is applied
// identically to file-chunk names and delete targets.
func ValidatePath(name string) error {
	if name == "" {
		return bferrors.NewMalformedFrame("forbidden-path", "empty name")
	}
	if isAbsolutePath(name) {
		return bferrors.NewMalformedFrame("forbidden-path", "absolute path: "+name)
	}
	if hasDotDotComponent(name) {
		return bferrors.NewMalformedFrame("forbidden-path", "contains .. component: "+name)
	}
	if hasForbiddenExtension(name) {
		return bferrors.NewMalformedFrame("forbidden-path", "forbidden extension: "+name)
	}
	return nil
}

func isAbsolutePath(name string) bool {
	if strings.HasPrefix(name, "/") || strings.HasPrefix(name, "\\") {
		return true
	}
	// Windows drive letter, e.g. "C:\" or "C:/".
	if len(name) >= 3 && isASCIILetter(name[0]) && name[1] == ':' {
		return name[2] == '/' || name[2] == '\\'
	}
	return false
}

func isASCIILetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func hasDotDotComponent(name string) bool {
	for _, part := range strings.FieldsFunc(name, func(r rune) bool { return r == '/' || r == '\\' }) {
		if part == ".." {
			return true
		}
	}
	return false
}

func hasForbiddenExtension(name string) bool {
	for _, ext := range ForbiddenExtensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}
