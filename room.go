package sigrelay

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"
)

// Room is a named rendezvous point. Its fields never change after creation;
// membership lives in the transport.
type Room struct {
	name        string
	appName     string
	description string
	owner       string
	createdAt   time.Time
}

func (r *Room) Name() string         { return r.name }
func (r *Room) AppName() string      { return r.appName }
func (r *Room) Description() string  { return r.description }
func (r *Room) Owner() string        { return r.owner }
func (r *Room) CreatedAt() time.Time { return r.createdAt }

// RoomSummary is the listing form of a room.
type RoomSummary struct {
	Name        string `json:"name"`
	AppName     string `json:"appName"`
	Description string `json:"description"`
	Owner       string `json:"owner"`
	SocketCount int    `json:"socketCount"`
}

// RoomRegistry holds the registered rooms. Names are unique across every
// application namespace. Like ClientRegistry it is only used from the Hub
// loop, except for evictions which run on their own goroutines and only
// touch the transport.
type RoomRegistry struct {
	transport Transport
	rooms     map[string]*Room
	// retired keeps deleted rooms until their channel is destroyed. The
	// former owner is notified then, and the name is fenced until then.
	retired   map[string]*Room
	evictions sync.WaitGroup
	log       *slog.Logger
	now       func() time.Time
}

// NewRoomRegistry creates an empty registry whose rooms live on transport.
func NewRoomRegistry(transport Transport, log *slog.Logger) *RoomRegistry {
	return &RoomRegistry{
		transport: transport,
		rooms:     make(map[string]*Room),
		retired:   make(map[string]*Room),
		log:       log,
		now:       time.Now,
	}
}

// Create registers a room and joins its owner to the room channel.
func (r *RoomRegistry) Create(name, appName, description, ownerID string) (*Room, error) {
	if _, exists := r.rooms[name]; exists {
		return nil, roomAlreadyExists(name)
	}

	room := &Room{
		name:        name,
		appName:     appName,
		description: description,
		owner:       ownerID,
		createdAt:   r.now(),
	}
	r.rooms[name] = room
	r.transport.Join(ownerID, name)

	r.log.Info("room created", "room", name, "appName", appName, "owner", ownerID)
	return room, nil
}

// Find returns the registered room called name.
func (r *RoomRegistry) Find(name string) (*Room, bool) {
	room, ok := r.rooms[name]
	return room, ok
}

// ListByApp summarizes the rooms of one application, sorted by name. Socket
// counts are read from the transport at call time.
func (r *RoomRegistry) ListByApp(appName string) []RoomSummary {
	rooms := lo.Filter(lo.Values(r.rooms), func(room *Room, _ int) bool {
		return room.appName == appName
	})
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].name < rooms[j].name })

	return lo.Map(rooms, func(room *Room, _ int) RoomSummary {
		return RoomSummary{
			Name:        room.name,
			AppName:     room.appName,
			Description: room.description,
			Owner:       room.owner,
			SocketCount: len(r.transport.Members(room.name)),
		}
	})
}

// Delete unregisters a room and evicts its current members from the room
// channel. The eviction runs in the background and is not retried; the
// returned channel is closed once it has been attempted. Until the channel
// is destroyed the name stays retired and cannot be created again. The
// returned bool is false when the channel was already empty: nothing will
// reap the room and the caller notifies the owner itself.
func (r *RoomRegistry) Delete(name string) (<-chan struct{}, bool, error) {
	room, exists := r.rooms[name]
	if !exists {
		return nil, false, roomNotFound(name)
	}
	delete(r.rooms, name)

	members := len(r.transport.Members(name))
	done := make(chan struct{})
	if members == 0 {
		close(done)
		r.log.Info("room deleted", "room", name, "owner", room.owner, "evicted", 0)
		return done, false, nil
	}
	r.retired[name] = room

	r.evictions.Add(1)
	go func() {
		defer r.evictions.Done()
		defer close(done)
		r.transport.Evict(name)
	}()

	r.log.Info("room deleted", "room", name, "owner", room.owner, "evicted", members)
	return done, true, nil
}

// Retired reports whether name belongs to a deleted room whose channel has
// not been destroyed yet.
func (r *RoomRegistry) Retired(name string) bool {
	_, ok := r.retired[name]
	return ok
}

// Reap consumes the retired record of a deleted room.
func (r *RoomRegistry) Reap(name string) (*Room, bool) {
	room, ok := r.retired[name]
	if ok {
		delete(r.retired, name)
	}
	return room, ok
}

// WaitEvictions blocks until every eviction started so far is over.
func (r *RoomRegistry) WaitEvictions() {
	r.evictions.Wait()
}

// Len returns the number of registered rooms.
func (r *RoomRegistry) Len() int {
	return len(r.rooms)
}
