package chat

import (
	"sync"
	"time"
)

// Participant is a (connection, user) pair currently joined to a ticket room.
type Participant struct {
	ConnectionID string    `json:"-"`
	UserID       string    `json:"userId"`
	UserName     string    `json:"userName"`
	UserType     string    `json:"userType"`
	JoinedAt     time.Time `json:"joinedAt"`
}

// Departure records one leave produced by a disconnect sweep, together with
// the membership snapshot left behind for the user-left broadcast.
type Departure struct {
	TicketID  string
	Left      Participant
	Remaining []Participant
}

// RoomRegistry tracks which participants are live in each ticket room and
// which tickets each connection has joined. All mutations and the snapshots
// they hand back happen under one lock, so a broadcast never observes a
// membership set mid-mutation.
type RoomRegistry struct {
	mu sync.RWMutex
	// rooms maps ticketID -> userID -> participant. A user appears at most
	// once per ticket; a rejoin from a new connection replaces the entry.
	rooms map[string]map[string]Participant
	// conns maps connectionID -> set of joined ticketIDs, so disconnect
	// cleanup costs O(tickets joined) rather than O(all rooms).
	conns map[string]map[string]struct{}
}

// NewRoomRegistry creates an empty registry.
func NewRoomRegistry() *RoomRegistry {
	return &RoomRegistry{
		rooms: make(map[string]map[string]Participant),
		conns: make(map[string]map[string]struct{}),
	}
}

// Join registers the participant in the ticket room. Rejoining with the same
// connection is a no-op. Rejoining with a different connection replaces the
// previous entry (last connection wins) without counting as a new join, so
// the caller only announces genuinely fresh participants. The returned
// others slice is the membership excluding the joiner, taken in the same
// lock window as the mutation.
func (r *RoomRegistry) Join(ticketID string, p Participant) (newJoin bool, others []Participant) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[ticketID]
	if !ok {
		room = make(map[string]Participant)
		r.rooms[ticketID] = room
	}

	existing, present := room[p.UserID]
	if present && existing.ConnectionID == p.ConnectionID {
		return false, r.othersLocked(ticketID, p.UserID)
	}
	if present {
		// Connection swap: the old connection no longer owns this room entry.
		r.untrackLocked(existing.ConnectionID, ticketID)
	}

	room[p.UserID] = p
	r.trackLocked(p.ConnectionID, ticketID)
	return !present, r.othersLocked(ticketID, p.UserID)
}

// Leave removes the user's entry from the ticket room. A no-op leave is not
// an error. The remaining slice is the post-removal membership used for the
// user-left broadcast; empty rooms are pruned immediately.
func (r *RoomRegistry) Leave(ticketID, userID string) (left Participant, remaining []Participant, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.leaveLocked(ticketID, userID)
}

// LeaveAllForConnection performs the disconnect sweep: every ticket the
// connection had joined gets exactly one leave, in the same shape an
// explicit leave_ticket would produce.
func (r *RoomRegistry) LeaveAllForConnection(connectionID string) []Departure {
	r.mu.Lock()
	defer r.mu.Unlock()

	tickets, ok := r.conns[connectionID]
	if !ok {
		return nil
	}

	departures := make([]Departure, 0, len(tickets))
	for ticketID := range tickets {
		room, ok := r.rooms[ticketID]
		if !ok {
			continue
		}
		for userID, p := range room {
			if p.ConnectionID != connectionID {
				continue
			}
			if left, remaining, removed := r.leaveLocked(ticketID, userID); removed {
				departures = append(departures, Departure{
					TicketID:  ticketID,
					Left:      left,
					Remaining: remaining,
				})
			}
			break
		}
	}
	delete(r.conns, connectionID)
	return departures
}

// MembersOf returns a snapshot of the ticket room's current participants.
func (r *RoomRegistry) MembersOf(ticketID string) []Participant {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room := r.rooms[ticketID]
	members := make([]Participant, 0, len(room))
	for _, p := range room {
		members = append(members, p)
	}
	return members
}

// IsMember reports whether the user is currently joined to the ticket room.
func (r *RoomRegistry) IsMember(ticketID, userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[ticketID]
	if !ok {
		return false
	}
	_, present := room[userID]
	return present
}

// PurgeTicket drops the entire room and removes the ticket from every
// connection's tracked set. Used when a ticket is closed: from the live
// session perspective the ticket is gone. Returns the members that were
// present so the caller can deliver the deletion notice first.
func (r *RoomRegistry) PurgeTicket(ticketID string) []Participant {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[ticketID]
	if !ok {
		return nil
	}
	members := make([]Participant, 0, len(room))
	for _, p := range room {
		members = append(members, p)
		r.untrackLocked(p.ConnectionID, ticketID)
	}
	delete(r.rooms, ticketID)
	return members
}

func (r *RoomRegistry) leaveLocked(ticketID, userID string) (Participant, []Participant, bool) {
	room, ok := r.rooms[ticketID]
	if !ok {
		return Participant{}, nil, false
	}
	p, present := room[userID]
	if !present {
		return Participant{}, nil, false
	}

	delete(room, userID)
	r.untrackLocked(p.ConnectionID, ticketID)
	if len(room) == 0 {
		delete(r.rooms, ticketID)
		return p, nil, true
	}
	return p, r.othersLocked(ticketID, userID), true
}

func (r *RoomRegistry) othersLocked(ticketID, excludeUserID string) []Participant {
	room := r.rooms[ticketID]
	others := make([]Participant, 0, len(room))
	for userID, p := range room {
		if userID == excludeUserID {
			continue
		}
		others = append(others, p)
	}
	return others
}

func (r *RoomRegistry) trackLocked(connectionID, ticketID string) {
	tickets, ok := r.conns[connectionID]
	if !ok {
		tickets = make(map[string]struct{})
		r.conns[connectionID] = tickets
	}
	tickets[ticketID] = struct{}{}
}

func (r *RoomRegistry) untrackLocked(connectionID, ticketID string) {
	if tickets, ok := r.conns[connectionID]; ok {
		delete(tickets, ticketID)
		if len(tickets) == 0 {
			delete(r.conns, connectionID)
		}
	}
}
