package app

import (
	"iter"
	"slices"
	"sync"
	"time"

	"github.com/dkeye/MedCall/internal/domain"
	"github.com/rs/zerolog/log"
)

type member struct {
	p   domain.Participant
	seq uint64
}

// roomEntry is one room's serialization point. Everything that changes or
// fans out from the room happens while mu is held.
type roomEntry struct {
	mu        sync.Mutex
	id        domain.RoomID
	createdAt time.Time
	members   map[domain.ConnID]*member
	nextSeq   uint64
	deleted   bool
}

func (e *roomEntry) snapshot(except domain.ConnID) []domain.Participant {
	ms := make([]*member, 0, len(e.members))
	for conn, m := range e.members {
		if conn != except {
			ms = append(ms, m)
		}
	}
	slices.SortFunc(ms, func(a, b *member) int {
		switch {
		case a.seq < b.seq:
			return -1
		case a.seq > b.seq:
			return 1
		}
		return 0
	})
	out := make([]domain.Participant, len(ms))
	for i, m := range ms {
		out[i] = m.p
	}
	return out
}

func (e *roomEntry) info() domain.RoomInfo {
	return domain.RoomInfo{
		ID:               e.id,
		ParticipantCount: len(e.members),
		Status:           domain.StatusFor(len(e.members)),
		CreatedAt:        e.createdAt,
	}
}

// JoinResult is what a room looked like right after a join was accepted.
type JoinResult struct {
	Room      domain.RoomInfo
	Joined    domain.Participant
	Others    []domain.Participant
	Created   bool
	Rejoined  bool
	Activated bool
}

// LeaveResult is what a room looked like right after a participant left.
type LeaveResult struct {
	RoomID    domain.RoomID
	Left      domain.Participant
	Remaining []domain.Participant
	Count     int
	Status    domain.RoomStatus
	Deleted   bool
}

// RoomStore owns every room and the connection -> rooms index.
// Callbacks passed to mutating methods run inside the room's serialization
// point, so notifications they enqueue keep the room's acceptance order.
type RoomStore struct {
	rooms       *shardMap[domain.RoomID, *roomEntry]
	memberships *shardMap[domain.ConnID, map[domain.RoomID]struct{}]
	now         func() time.Time
}

func NewRoomStore() *RoomStore {
	return &RoomStore{
		rooms:       newShardMap[domain.RoomID, *roomEntry](),
		memberships: newShardMap[domain.ConnID, map[domain.RoomID]struct{}](),
		now:         time.Now,
	}
}

// JoinRoom adds or refreshes p in the room, creating the room if needed.
// A rejoin with the same handle updates metadata and keeps joinedAt and media flags.
func (s *RoomStore) JoinRoom(id domain.RoomID, p domain.Participant, then func(JoinResult)) JoinResult {
	for {
		e, loaded := s.rooms.LoadOrStore(id, func() *roomEntry {
			return &roomEntry{id: id, createdAt: s.now(), members: make(map[domain.ConnID]*member)}
		})
		e.mu.Lock()
		if e.deleted {
			// Lost a race with the last leave; the map already points elsewhere.
			e.mu.Unlock()
			continue
		}

		before := len(e.members)
		res := JoinResult{Created: !loaded}
		if m, ok := e.members[p.ConnID]; ok {
			p.JoinedAt = m.p.JoinedAt
			p.AudioEnabled = m.p.AudioEnabled
			p.VideoEnabled = m.p.VideoEnabled
			m.p = p
			res.Rejoined = true
		} else {
			e.nextSeq++
			e.members[p.ConnID] = &member{p: p, seq: e.nextSeq}
			s.addMembership(p.ConnID, id)
		}

		res.Joined = p
		res.Room = e.info()
		res.Others = e.snapshot(p.ConnID)
		res.Activated = before < 2 && len(e.members) >= 2

		log.Info().Str("module", "app.rooms").Str("room", string(id)).Str("conn", string(p.ConnID)).Int("count", len(e.members)).Bool("rejoin", res.Rejoined).Msg("participant joined")
		if then != nil {
			then(res)
		}
		e.mu.Unlock()
		return res
	}
}

// LeaveRoom removes the participant behind conn. ok is false when there was
// nothing to remove. The room is deleted before LeaveRoom returns if it emptied.
func (s *RoomStore) LeaveRoom(id domain.RoomID, conn domain.ConnID, then func(LeaveResult)) (LeaveResult, bool) {
	e, ok := s.rooms.Load(id)
	if !ok {
		return LeaveResult{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted {
		return LeaveResult{}, false
	}
	m, ok := e.members[conn]
	if !ok {
		return LeaveResult{}, false
	}
	delete(e.members, conn)
	s.removeMembership(conn, id)

	count := len(e.members)
	res := LeaveResult{
		RoomID:    id,
		Left:      m.p,
		Remaining: e.snapshot(""),
		Count:     count,
		Status:    domain.StatusFor(count),
		Deleted:   count == 0,
	}
	if res.Deleted {
		e.deleted = true
		s.rooms.CompareAndDelete(id, func(cur *roomEntry) bool { return cur == e })
		log.Info().Str("module", "app.rooms").Str("room", string(id)).Msg("room deleted (empty)")
	}
	log.Info().Str("module", "app.rooms").Str("room", string(id)).Str("conn", string(conn)).Int("count", count).Msg("participant left")
	if then != nil {
		then(res)
	}
	return res, true
}

// ToggleMedia updates one media flag. Missing rooms or participants are a
// silent no-op; then sees the updated participant and the rest of the room.
func (s *RoomStore) ToggleMedia(id domain.RoomID, conn domain.ConnID, kind domain.MediaType, enabled bool, then func(p domain.Participant, others []domain.Participant)) bool {
	e, ok := s.rooms.Load(id)
	if !ok {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	m, ok := e.members[conn]
	if e.deleted || !ok {
		return false
	}
	if !m.p.SetMedia(kind, enabled) {
		return false
	}
	if then != nil {
		then(m.p, e.snapshot(conn))
	}
	return true
}

// WithMembers runs fn with the room's participants if conn is one of them.
func (s *RoomStore) WithMembers(id domain.RoomID, conn domain.ConnID, fn func(self domain.Participant, members []domain.Participant)) bool {
	e, ok := s.rooms.Load(id)
	if !ok {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	m, ok := e.members[conn]
	if e.deleted || !ok {
		return false
	}
	fn(m.p, e.snapshot(""))
	return true
}

func (s *RoomStore) GetRoom(id domain.RoomID) (domain.RoomDetails, bool) {
	e, ok := s.rooms.Load(id)
	if !ok {
		return domain.RoomDetails{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted {
		return domain.RoomDetails{}, false
	}
	return domain.RoomDetails{RoomInfo: e.info(), Participants: e.snapshot("")}, true
}

// ListActiveRooms yields the rooms present at call time, reading each one's
// counters as it is reached. Rooms deleted in between are skipped.
func (s *RoomStore) ListActiveRooms() iter.Seq[domain.RoomInfo] {
	snap := s.rooms.Snapshot()
	slices.SortFunc(snap, func(a, b entry[domain.RoomID, *roomEntry]) int {
		return a.Value.createdAt.Compare(b.Value.createdAt)
	})
	return func(yield func(domain.RoomInfo) bool) {
		for _, it := range snap {
			e := it.Value
			e.mu.Lock()
			info, live := e.info(), !e.deleted
			e.mu.Unlock()
			if !live {
				continue
			}
			if !yield(info) {
				return
			}
		}
	}
}

// RoomsOf returns the rooms conn has joined, without scanning all rooms.
func (s *RoomStore) RoomsOf(conn domain.ConnID) []domain.RoomID {
	var out []domain.RoomID
	s.memberships.Update(conn, func(cur map[domain.RoomID]struct{}, ok bool) (map[domain.RoomID]struct{}, bool) {
		for id := range cur {
			out = append(out, id)
		}
		return cur, ok
	})
	slices.Sort(out)
	return out
}

// ConnsOfUser returns every handle userID holds in the room.
func (s *RoomStore) ConnsOfUser(id domain.RoomID, userID domain.UserID) []domain.ConnID {
	e, ok := s.rooms.Load(id)
	if !ok {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []domain.ConnID
	for _, p := range e.snapshot("") {
		if p.UserID == userID {
			out = append(out, p.ConnID)
		}
	}
	return out
}

func (s *RoomStore) RoomCount() int { return s.rooms.Len() }

func (s *RoomStore) addMembership(conn domain.ConnID, id domain.RoomID) {
	s.memberships.Update(conn, func(cur map[domain.RoomID]struct{}, ok bool) (map[domain.RoomID]struct{}, bool) {
		if !ok {
			cur = make(map[domain.RoomID]struct{}, 1)
		}
		cur[id] = struct{}{}
		return cur, true
	})
}

func (s *RoomStore) removeMembership(conn domain.ConnID, id domain.RoomID) {
	s.memberships.Update(conn, func(cur map[domain.RoomID]struct{}, ok bool) (map[domain.RoomID]struct{}, bool) {
		if !ok {
			return nil, false
		}
		delete(cur, id)
		return cur, len(cur) > 0
	})
}
