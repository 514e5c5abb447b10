package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTable_GetOrCreateReturnsSameRecordForSamePeer(t *testing.T) {
	table := NewTable()

	a := table.GetOrCreate("peer-1", RoleServer)
	b := table.GetOrCreate("peer-1", RoleServer)

	assert.Same(t, a, b)
}

func TestTable_RemoveDropsRecord(t *testing.T) {
	table := NewTable()
	table.GetOrCreate("peer-1", RoleServer)
	table.Remove("peer-1")

	_, ok := table.Get("peer-1")
	assert.False(t, ok)
}

func TestRecord_AuthenticatedDefaultsFalse(t *testing.T) {
	table := NewTable()
	rec := table.GetOrCreate("peer-1", RoleClient)

	assert.False(t, rec.Authenticated())
}

func TestRole_String(t *testing.T) {
	assert.Equal(t, "client", RoleClient.String())
	assert.Equal(t, "server", RoleServer.String())
}
