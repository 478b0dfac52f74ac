package segment

import (
	"fmt"
	"regexp"
)

// maxKeyNameLen caps the sanitized key part of a segment file name. The file name is advisory for humans, the raw key
// lives in the segment header.
const maxKeyNameLen = 20

// fileNamePattern is the file pattern all segment files need to follow.
var fileNamePattern = regexp.MustCompile(`^.+-\d+-\d{4,}\.log$`)

// FileName derives the segment file name from the sanitized key, the key hash and the sequence number.
func FileName(keyName string, keyHash uint64, sequence uint64) string {
	return fmt.Sprintf("%s-%d-%04d.log", SanitizeKeyName(keyName), keyHash, sequence)
}

// IsSegmentFileName reports if the given file name matches the segment file naming scheme.
func IsSegmentFileName(fileName string) bool {
	return fileNamePattern.MatchString(fileName)
}

// SanitizeKeyName replaces every byte outside of [A-Za-z0-9_-] with an underscore and truncates the result so that
// arbitrary key bytes result in a valid file name on all platforms.
func SanitizeKeyName(keyName string) string {
	result := make([]byte, 0, min(len(keyName), maxKeyNameLen))
	for i := 0; i < len(keyName) && i < maxKeyNameLen; i++ {
		c := keyName[i]
		switch {
		case c >= 'a' && c <= 'z',
			c >= 'A' && c <= 'Z',
			c >= '0' && c <= '9',
			c == '_', c == '-':
			result = append(result, c)
		default:
			result = append(result, '_')
		}
	}
	if len(result) == 0 {
		result = append(result, '_')
	}
	return string(result)
}
