package util

import (
	"fmt"
	"regexp"
)

// GetRegexCaptureGroups takes a string and a compiled RegExp, and returns
// a map of capture group name to the captured value. Map may be empty, and
// expected keys may not be present. Test for empty string values when
// attempting to get values from the resulting map.
func GetRegexCaptureGroups(s string, re *regexp.Regexp) map[string]string {
	result := make(map[string]string)
	match := re.FindStringSubmatch(s)
	for i, name := range re.SubexpNames() {
		if i != 0 && i < len(match) {
			result[name] = match[i]
		}
	}
	return result
}

// SanitizePath rejects path strings carrying traversal or encoding
// metacharacters before they reach the filesystem.
func SanitizePath(path string) error {
	if regexp.MustCompile(`\.{2,}`).MatchString(path) {
		return fmt.Errorf("relative path detected in %q", path)
	}
	if regexp.MustCompile(`%`).MatchString(path) {
		return fmt.Errorf("encoding metacharacter detected in %q", path)
	}
	return nil
}
