// Package channel implements the channel room state machine: the
// hardest subsystem in the server, combining membership, a bounded
// replay buffer, ban/mute/kick, and an admin takeover lock under one
// per-room mutex.
package channel

// EventSource marks a ChannelLine synthesized by the room itself
// (join/leave notices) rather than typed by a member.
const EventSource = "EVENT"

// Line is one chat history record: either a member's message or a
// synthesized EVENT notice.
type Line struct {
	Source string
	Text   string
}

// Render formats the line the way it is printed to a connected
// member: "[source] text".
func (l Line) Render() string {
	return "[" + l.Source + "] " + l.Text
}
