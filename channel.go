package sigrelay

// Channel identifies a transport channel. It is either the private channel
// every session is placed in (SelfChannel) or an application room
// (RoomChannel). The set of variants is closed.
type Channel interface {
	Name() string
	isChannel()
}

// SelfChannel is the private channel of one session.
type SelfChannel struct {
	SessionID string
}

func (c SelfChannel) Name() string { return c.SessionID }
func (SelfChannel) isChannel()     {}

// RoomChannel is the channel backing a room.
type RoomChannel struct {
	Room string
}

func (c RoomChannel) Name() string { return c.Room }
func (RoomChannel) isChannel()     {}

// ChannelOf tags a raw channel name. private is decided by the transport,
// which knows whether the channel is the one a session was placed in on
// connect.
func ChannelOf(name string, private bool) Channel {
	if private {
		return SelfChannel{SessionID: name}
	}
	return RoomChannel{Room: name}
}
