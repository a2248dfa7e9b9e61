package engine

import "regexp"

// Telephony rooms look like "call-_+15551234567_abcd"; the middle segment is
// the participant's number.
var phonePattern = regexp.MustCompile(`call-_(\+\d+)_`)

// ExtractPhone pulls the participant phone number out of a room name, or
// returns "" when the room does not carry one.
func ExtractPhone(roomName string) string {
	m := phonePattern.FindStringSubmatch(roomName)
	if m == nil {
		return ""
	}
	return m[1]
}
