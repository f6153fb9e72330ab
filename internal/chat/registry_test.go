package chat

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func participant(connID, userID, name string) Participant {
	return Participant{
		ConnectionID: connID,
		UserID:       userID,
		UserName:     name,
		UserType:     "customer",
		JoinedAt:     time.Now().UTC(),
	}
}

func TestJoinFreshParticipant(t *testing.T) {
	reg := NewRoomRegistry()

	newJoin, others := reg.Join("t1", participant("c1", "u1", "Sara"))
	assert.True(t, newJoin)
	assert.Empty(t, others)

	newJoin, others = reg.Join("t1", participant("c2", "u2", "Omar"))
	assert.True(t, newJoin)
	require.Len(t, others, 1)
	assert.Equal(t, "u1", others[0].UserID)
}

func TestJoinSameConnectionIsIdempotent(t *testing.T) {
	reg := NewRoomRegistry()
	reg.Join("t1", participant("c1", "u1", "Sara"))

	newJoin, _ := reg.Join("t1", participant("c1", "u1", "Sara"))
	assert.False(t, newJoin)
	assert.Len(t, reg.MembersOf("t1"), 1)
}

func TestJoinConnectionSwapReplacesEntry(t *testing.T) {
	reg := NewRoomRegistry()
	reg.Join("t1", participant("c1", "u1", "Sara"))

	// Same user reconnects on a new connection: the entry is replaced, the
	// room does not announce a second join, and the old connection no longer
	// owns the membership.
	newJoin, _ := reg.Join("t1", participant("c2", "u1", "Sara"))
	assert.False(t, newJoin)

	members := reg.MembersOf("t1")
	require.Len(t, members, 1)
	assert.Equal(t, "c2", members[0].ConnectionID)

	assert.Empty(t, reg.LeaveAllForConnection("c1"))
	assert.True(t, reg.IsMember("t1", "u1"))
}

func TestLeaveReturnsRemainingSnapshot(t *testing.T) {
	reg := NewRoomRegistry()
	reg.Join("t1", participant("c1", "u1", "Sara"))
	reg.Join("t1", participant("c2", "u2", "Omar"))

	left, remaining, ok := reg.Leave("t1", "u1")
	require.True(t, ok)
	assert.Equal(t, "Sara", left.UserName)
	require.Len(t, remaining, 1)
	assert.Equal(t, "u2", remaining[0].UserID)
}

func TestLeaveAbsentUserIsNoop(t *testing.T) {
	reg := NewRoomRegistry()
	reg.Join("t1", participant("c1", "u1", "Sara"))

	_, _, ok := reg.Leave("t1", "ghost")
	assert.False(t, ok)
	_, _, ok = reg.Leave("unknown", "u1")
	assert.False(t, ok)
	assert.Len(t, reg.MembersOf("t1"), 1)
}

func TestLeavePrunesEmptyRoom(t *testing.T) {
	reg := NewRoomRegistry()
	reg.Join("t1", participant("c1", "u1", "Sara"))

	_, remaining, ok := reg.Leave("t1", "u1")
	require.True(t, ok)
	assert.Empty(t, remaining)
	assert.Empty(t, reg.MembersOf("t1"))
	assert.False(t, reg.IsMember("t1", "u1"))
}

func TestLeaveAllForConnectionSweepsEveryRoom(t *testing.T) {
	reg := NewRoomRegistry()
	reg.Join("t1", participant("c1", "u1", "Sara"))
	reg.Join("t2", participant("c1", "u1", "Sara"))
	reg.Join("t1", participant("c2", "u2", "Omar"))

	departures := reg.LeaveAllForConnection("c1")
	require.Len(t, departures, 2)
	for _, dep := range departures {
		assert.Equal(t, "u1", dep.Left.UserID)
	}

	assert.False(t, reg.IsMember("t1", "u1"))
	assert.False(t, reg.IsMember("t2", "u1"))
	assert.True(t, reg.IsMember("t1", "u2"))

	// Sweeping a connection twice is harmless.
	assert.Empty(t, reg.LeaveAllForConnection("c1"))
}

func TestPurgeTicketDropsAllMembers(t *testing.T) {
	reg := NewRoomRegistry()
	reg.Join("t1", participant("c1", "u1", "Sara"))
	reg.Join("t1", participant("c2", "u2", "Omar"))
	reg.Join("t2", participant("c1", "u1", "Sara"))

	members := reg.PurgeTicket("t1")
	assert.Len(t, members, 2)
	assert.Empty(t, reg.MembersOf("t1"))

	// Purging untracks the ticket per connection, so a later disconnect
	// sweep only reports rooms the connection still occupies.
	departures := reg.LeaveAllForConnection("c1")
	require.Len(t, departures, 1)
	assert.Equal(t, "t2", departures[0].TicketID)

	assert.Nil(t, reg.PurgeTicket("t1"))
}

func TestRegistryConcurrentJoinLeave(t *testing.T) {
	reg := NewRoomRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			connID := fmt.Sprintf("c%d", n)
			userID := fmt.Sprintf("u%d", n)
			for j := 0; j < 50; j++ {
				ticketID := fmt.Sprintf("t%d", j%4)
				reg.Join(ticketID, participant(connID, userID, userID))
				reg.MembersOf(ticketID)
				if j%2 == 0 {
					reg.Leave(ticketID, userID)
				}
			}
			reg.LeaveAllForConnection(connID)
		}(i)
	}
	wg.Wait()

	for j := 0; j < 4; j++ {
		assert.Empty(t, reg.MembersOf(fmt.Sprintf("t%d", j)))
	}
}
