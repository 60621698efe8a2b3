package game

import (
	"regexp"
	"strings"
)

// ShortCodeLength is the number of hex characters in a room's display code.
const ShortCodeLength = 6

var shortCodePattern = regexp.MustCompile(`^[0-9A-Fa-f]{6}$`)

// ShortCode derives the display code of a long room id: the first three bytes in upper-case hex.
// The mapping is lossy; resolving a code back to a room needs the registry.
func ShortCode(roomID string) string {
	hex := strings.TrimPrefix(strings.TrimPrefix(roomID, "0x"), "0X")
	if len(hex) > ShortCodeLength {
		hex = hex[:ShortCodeLength]
	}
	return strings.ToUpper(hex)
}

// IsValidShortCode reports whether code is exactly six hex characters.
func IsValidShortCode(code string) bool {
	return shortCodePattern.MatchString(code)
}

// FormatRoomID renders a long id or a short code as "Room #XXXXXX".
func FormatRoomID(roomID string) string {
	if roomID == "" {
		return "Unknown Room"
	}
	code := strings.ToUpper(roomID)
	if len(roomID) > 10 {
		code = ShortCode(roomID)
	}
	return "Room #" + code
}
