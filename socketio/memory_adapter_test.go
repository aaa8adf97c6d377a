package socketio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramory-l/sigrelay/engineio"
)

type eventRecorder struct {
	events []RoomEvent
}

func (r *eventRecorder) listen(evt RoomEvent) {
	r.events = append(r.events, evt)
}

func newTestAdapter(t *testing.T) (*MemoryAdapter, *eventRecorder) {
	t.Helper()
	ns := NewNamespace("/", nil)
	adapter := ns.adapter.(*MemoryAdapter)
	rec := &eventRecorder{}
	adapter.OnRoomEvent(rec.listen)
	return adapter, rec
}

func TestMemoryAdapter_Lifecycle(t *testing.T) {
	tests := []struct {
		name string
		run  func(a *MemoryAdapter)
		want []RoomEvent
	}{
		{
			name: "first join creates the room",
			run: func(a *MemoryAdapter) {
				a.Add("s1", "r1")
			},
			want: []RoomEvent{
				{Type: RoomCreated, Room: "r1", SocketID: "s1"},
				{Type: RoomJoined, Room: "r1", SocketID: "s1"},
			},
		},
		{
			name: "second join only joins",
			run: func(a *MemoryAdapter) {
				a.Add("s1", "r1")
				a.Add("s2", "r1")
			},
			want: []RoomEvent{
				{Type: RoomCreated, Room: "r1", SocketID: "s1"},
				{Type: RoomJoined, Room: "r1", SocketID: "s1"},
				{Type: RoomJoined, Room: "r1", SocketID: "s2"},
			},
		},
		{
			name: "duplicate join emits nothing",
			run: func(a *MemoryAdapter) {
				a.Add("s1", "r1")
				a.Add("s1", "r1")
			},
			want: []RoomEvent{
				{Type: RoomCreated, Room: "r1", SocketID: "s1"},
				{Type: RoomJoined, Room: "r1", SocketID: "s1"},
			},
		},
		{
			name: "last leave deletes the room",
			run: func(a *MemoryAdapter) {
				a.Add("s1", "r1")
				a.Remove("s1", "r1")
			},
			want: []RoomEvent{
				{Type: RoomCreated, Room: "r1", SocketID: "s1"},
				{Type: RoomJoined, Room: "r1", SocketID: "s1"},
				{Type: RoomLeft, Room: "r1", SocketID: "s1"},
				{Type: RoomDeleted, Room: "r1", SocketID: "s1"},
			},
		},
		{
			name: "removing a non member emits nothing",
			run: func(a *MemoryAdapter) {
				a.Remove("s1", "r1")
			},
		},
		{
			name: "own room is private",
			run: func(a *MemoryAdapter) {
				a.Add("s1", "s1")
			},
			want: []RoomEvent{
				{Type: RoomCreated, Room: "s1", SocketID: "s1", Private: true},
				{Type: RoomJoined, Room: "s1", SocketID: "s1", Private: true},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adapter, rec := newTestAdapter(t)
			tt.run(adapter)
			assert.Equal(t, tt.want, rec.events)
		})
	}
}

func TestMemoryAdapter_RemoveAll(t *testing.T) {
	adapter, rec := newTestAdapter(t)
	adapter.Add("s1", "s1")
	adapter.Add("s1", "r1")
	adapter.Add("s2", "r1")
	rec.events = nil

	adapter.RemoveAll("s1")

	assert.Empty(t, adapter.SocketRooms("s1"))
	assert.Equal(t, []string{"s2"}, adapter.Sockets("r1"))
	assert.ElementsMatch(t, []RoomEvent{
		{Type: RoomLeft, Room: "s1", SocketID: "s1", Private: true},
		{Type: RoomDeleted, Room: "s1", SocketID: "s1", Private: true},
		{Type: RoomLeft, Room: "r1", SocketID: "s1"},
	}, rec.events)
}

func TestMemoryAdapter_ListenerMayReenter(t *testing.T) {
	ns := NewNamespace("/", nil)
	adapter := ns.adapter.(*MemoryAdapter)

	var sizes []int
	adapter.OnRoomEvent(func(evt RoomEvent) {
		if evt.Type == RoomJoined {
			sizes = append(sizes, len(adapter.Sockets(evt.Room)))
		}
	})

	adapter.Add("s1", "r1")
	adapter.Add("s2", "r1")

	require.Equal(t, []int{1, 2}, sizes)
}

func TestBroadcastOperator_SocketIDs(t *testing.T) {
	ns := NewNamespace("/", nil)
	ns.adapter.Add("s1", "r1")
	ns.adapter.Add("s2", "r1")
	ns.adapter.Add("s2", "r2")
	ns.adapter.Add("s3", "r2")

	assert.ElementsMatch(t, []string{"s1", "s2", "s3"}, ns.In("r1", "r2").SocketIDs())
	assert.ElementsMatch(t, []string{"s1"}, ns.In("r1").Except("s2").SocketIDs())
	assert.Empty(t, ns.In("missing").SocketIDs())
}

func TestRoomEventType_String(t *testing.T) {
	assert.Equal(t, "create-room", RoomCreated.String())
	assert.Equal(t, "join-room", RoomJoined.String())
	assert.Equal(t, "leave-room", RoomLeft.String())
	assert.Equal(t, "delete-room", RoomDeleted.String())
}

func TestBroadcastOperator_SocketsLeave(t *testing.T) {
	ns := NewNamespace("/", nil)
	rec := &eventRecorder{}
	ns.OnRoomEvent(rec.listen)

	for _, id := range []string{"s1", "s2"} {
		socket := NewSocket(id, engineio.NewSession(id, nil, nil), ns)
		ns.sockets[id] = socket
		socket.Join("r1")
	}
	rec.events = nil

	ns.In("r1").SocketsLeave("r1")

	assert.Empty(t, ns.RoomSockets("r1"))
	require.Len(t, rec.events, 3)
	assert.Equal(t, RoomDeleted, rec.events[2].Type)
	for _, socket := range ns.Sockets() {
		assert.Empty(t, socket.Rooms())
	}
}
