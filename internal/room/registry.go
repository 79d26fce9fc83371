package room

import (
	"context"
	"sync"

	"github.com/revisaosegura/copartbr-sub000/internal/identity"
	model "github.com/revisaosegura/copartbr-sub000/internal/models"
	"github.com/revisaosegura/copartbr-sub000/internal/queue"
	"github.com/revisaosegura/copartbr-sub000/internal/repository"
	"github.com/revisaosegura/copartbr-sub000/utils"
)

// Registry owns the lot-to-room and lot-to-observer mappings. Rooms are
// created lazily on first join or bid and stay warm for the life of the
// process; they are caches, and a restart simply rebuilds them from the
// store.
type Registry struct {
	store        repository.LotStore
	publisher    queue.Publisher
	historyLimit int

	mu          sync.RWMutex
	rooms       map[string]*Room               // lotID -> room
	observers   map[string]map[string]Observer // lotID -> connID -> observer
	memberships map[string]map[string]struct{} // connID -> lotIDs observed
}

// NewRegistry creates an empty registry over the given store.
func NewRegistry(store repository.LotStore, publisher queue.Publisher, historyLimit int) *Registry {
	if publisher == nil {
		publisher = queue.NopPublisher{}
	}
	return &Registry{
		store:        store,
		publisher:    publisher,
		historyLimit: historyLimit,
		rooms:        make(map[string]*Room),
		observers:    make(map[string]map[string]Observer),
		memberships:  make(map[string]map[string]struct{}),
	}
}

// Join attaches the observer to the lot's room, creating and hydrating the
// room if this is the lot's first touch, and replays the bid history to
// the joining observer only.
func (g *Registry) Join(ctx context.Context, lotID string, obs Observer) error {
	return g.room(lotID).Join(ctx, obs)
}

// PlaceBid routes a bid through the lot's room.
func (g *Registry) PlaceBid(ctx context.Context, lotID string, bidder identity.Identity, amount int64) (model.Bid, error) {
	return g.room(lotID).PlaceBid(ctx, bidder, amount)
}

// Leave detaches the observer from one lot. No broadcast is sent.
func (g *Registry) Leave(lotID string, obs Observer) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.detachLocked(lotID, obs.ID())
}

// Drop removes a disconnected observer from every room it was observing.
func (g *Registry) Drop(obs Observer) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for lotID := range g.memberships[obs.ID()] {
		g.detachLocked(lotID, obs.ID())
	}
}

// Broadcast delivers the event to every observer of the lot. Delivery is
// independent per connection: Send never blocks, so one slow observer
// cannot delay or drop delivery to the rest.
func (g *Registry) Broadcast(lotID string, event Event) {
	g.mu.RLock()
	targets := make([]Observer, 0, len(g.observers[lotID]))
	for _, obs := range g.observers[lotID] {
		targets = append(targets, obs)
	}
	g.mu.RUnlock()

	for _, obs := range targets {
		obs.Send(event)
	}
}

// ObserverCount reports how many connections are watching a lot.
func (g *Registry) ObserverCount(lotID string) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.observers[lotID])
}

// room returns the lot's room, creating it on first touch.
func (g *Registry) room(lotID string) *Room {
	g.mu.RLock()
	r, ok := g.rooms[lotID]
	g.mu.RUnlock()
	if ok {
		return r
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if r, ok := g.rooms[lotID]; ok {
		return r
	}
	r = newRoom(lotID, g.store, g, g.publisher, g.historyLimit)
	g.rooms[lotID] = r
	utils.Info("auction room created", map[string]any{"lot_id": lotID})
	return r
}

// attach is called from a room's op queue when an observer joins.
func (g *Registry) attach(lotID string, obs Observer) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.observers[lotID] == nil {
		g.observers[lotID] = make(map[string]Observer)
	}
	g.observers[lotID][obs.ID()] = obs
	if g.memberships[obs.ID()] == nil {
		g.memberships[obs.ID()] = make(map[string]struct{})
	}
	g.memberships[obs.ID()][lotID] = struct{}{}
}

func (g *Registry) detachLocked(lotID, connID string) {
	if set, ok := g.observers[lotID]; ok {
		delete(set, connID)
		if len(set) == 0 {
			delete(g.observers, lotID)
		}
	}
	if lots, ok := g.memberships[connID]; ok {
		delete(lots, lotID)
		if len(lots) == 0 {
			delete(g.memberships, connID)
		}
	}
}
