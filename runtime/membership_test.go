package runtime

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"chat-relay/domain"
)

func Test_Join_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	m := NewMembership()

	req.Equal(1, m.Join("general", "c1"))
	req.Equal(1, m.Join("general", "c1"))
	req.Equal(2, m.Join("general", "c2"))
}

func Test_Leave_NonMember_Is_NoOp(t *testing.T) {
	req := require.New(t)
	m := NewMembership()

	m.Leave("general", "c1")
	m.Join("general", "c1")
	m.Leave("general", "c2")
	req.True(m.IsMember("general", "c1"))
}

func Test_Empty_Channel_Is_Pruned(t *testing.T) {
	req := require.New(t)
	m := NewMembership()

	m.Join("general", "c1")
	m.Leave("general", "c1")

	req.Nil(m.MembersOf("general"))
	req.Empty(m.channels)
	req.Empty(m.joined)
}

func Test_LeaveAll_Clears_Every_Channel(t *testing.T) {
	req := require.New(t)
	m := NewMembership()

	m.Join("general", "c1")
	m.Join("random", "c1")
	m.Join("general", "c2")

	m.LeaveAll("c1")

	req.False(m.IsMember("general", "c1"))
	req.False(m.IsMember("random", "c1"))
	req.True(m.IsMember("general", "c2"))
	req.Nil(m.MembersOf("random"))
}

func Test_MembersOf_Returns_Snapshot(t *testing.T) {
	req := require.New(t)
	m := NewMembership()

	m.Join("general", "c1")
	m.Join("general", "c2")

	members := m.MembersOf("general")
	m.Leave("general", "c1")

	// Snapshot taken before the leave is unaffected.
	req.Len(members, 2)
	req.Len(m.MembersOf("general"), 1)
}

func Test_Concurrent_Joins_Same_Channel(t *testing.T) {
	req := require.New(t)
	m := NewMembership()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			conn := domain.ConnectionID(fmt.Sprintf("c%d", n%10))
			m.Join("general", conn)
		}(i)
	}
	wg.Wait()

	req.Len(m.MembersOf("general"), 10)
}
