package domain

import "strings"

const (
	directRoomPrefix = "dm:"
	groupRoomPrefix  = "group_"
	directSeparator  = "|"
)

var roomPartEscaper = strings.NewReplacer(`\`, `\\`, directSeparator, `\`+directSeparator)

// DirectRoom returns the room key of the conversation between a and b. The
// key does not depend on argument order. Separators inside ids are escaped,
// so distinct pairs never share a key.
func DirectRoom(a, b UserID) string {
	x, y := string(a), string(b)
	if y < x {
		x, y = y, x
	}
	return directRoomPrefix + roomPartEscaper.Replace(x) + directSeparator + roomPartEscaper.Replace(y)
}

// GroupRoom returns the room key of a group.
func GroupRoom(id GroupID) string {
	return groupRoomPrefix + string(id)
}
