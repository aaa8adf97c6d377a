package sigrelay

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/ramory-l/sigrelay/mocks"
)

func TestClientRegistry(t *testing.T) {
	ctrl := gomock.NewController(t)
	session := mocks.NewMockSession(ctrl)

	r := NewClientRegistry()
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return at }

	c, err := r.Register("A", session)
	require.NoError(t, err)
	assert.Equal(t, at, c.ConnectedAt)
	assert.Equal(t, 1, r.Len())

	_, err = r.Register("A", session)
	assert.True(t, errors.Is(err, ErrDuplicateSession))

	found, ok := r.Find("A")
	require.True(t, ok)
	assert.Same(t, c, found)

	session.EXPECT().Emit("ping", "payload").Return(nil)
	require.NoError(t, found.Emit("ping", "payload"))

	require.NoError(t, r.Unregister("A"))
	assert.True(t, errors.Is(r.Unregister("A"), ErrClientNotFound))
	_, ok = r.Find("A")
	assert.False(t, ok)
	assert.Equal(t, 0, r.Len())
}

func TestRoomRegistry_Create(t *testing.T) {
	ctrl := gomock.NewController(t)
	transport := mocks.NewMockTransport(ctrl)
	r := NewRoomRegistry(transport, discardLogger())

	transport.EXPECT().Join("A", "r1")

	room, err := r.Create("r1", "app", "d", "A")
	require.NoError(t, err)
	assert.Equal(t, "r1", room.Name())
	assert.False(t, room.CreatedAt().IsZero())

	_, err = r.Create("r1", "other", "", "B")
	assert.True(t, errors.Is(err, ErrRoomAlreadyExists))
	assert.Equal(t, 1, r.Len())
}

func TestRoomRegistry_ListByAppMatchesExactly(t *testing.T) {
	ctrl := gomock.NewController(t)
	transport := mocks.NewMockTransport(ctrl)
	r := NewRoomRegistry(transport, discardLogger())

	transport.EXPECT().Join(gomock.Any(), gomock.Any()).Times(2)
	_, err := r.Create("named", "app", "", "A")
	require.NoError(t, err)
	_, err = r.Create("unnamed", "", "", "B")
	require.NoError(t, err)

	transport.EXPECT().Members("unnamed").Return([]string{"B"})

	assert.Equal(t, []RoomSummary{{Name: "unnamed", Owner: "B", SocketCount: 1}}, r.ListByApp(""))
	assert.Empty(t, r.ListByApp("missing"))
}

func TestRoomRegistry_DeleteRetiresUntilReaped(t *testing.T) {
	ctrl := gomock.NewController(t)
	transport := mocks.NewMockTransport(ctrl)
	r := NewRoomRegistry(transport, discardLogger())

	transport.EXPECT().Join("A", "r1")
	_, err := r.Create("r1", "app", "", "A")
	require.NoError(t, err)

	transport.EXPECT().Members("r1").Return([]string{"A"})
	transport.EXPECT().Evict("r1")

	done, draining, err := r.Delete("r1")
	require.NoError(t, err)
	assert.True(t, draining)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("eviction did not finish")
	}

	_, ok := r.Find("r1")
	assert.False(t, ok)
	assert.True(t, r.Retired("r1"))

	room, ok := r.Reap("r1")
	require.True(t, ok)
	assert.Equal(t, "A", room.Owner())
	_, ok = r.Reap("r1")
	assert.False(t, ok)
	assert.False(t, r.Retired("r1"))

	_, _, err = r.Delete("r1")
	assert.True(t, errors.Is(err, ErrRoomNotFound))
}

func TestChannelOf(t *testing.T) {
	assert.Equal(t, SelfChannel{SessionID: "A"}, ChannelOf("A", true))
	assert.Equal(t, RoomChannel{Room: "r1"}, ChannelOf("r1", false))
	assert.Equal(t, "r1", ChannelOf("r1", false).Name())
}
