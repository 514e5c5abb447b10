package transfer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrea-bruno/cloudsync/pkg/handle"
)

func TestChunkPacket_MarshalUnmarshalRoundTrip_NonFinal(t *testing.T) {
	p := ChunkPacket{
		Handle: handle.Derive("a.txt", handle.File),
		Part:   1,
		Total:  3,
		Data:   []byte("hello world"),
	}

	got, err := UnmarshalChunkPacket(p.Marshal(), false)
	require.NoError(t, err)
	assert.Equal(t, p.Handle, got.Handle)
	assert.Equal(t, p.Part, got.Part)
	assert.Equal(t, p.Total, got.Total)
	assert.Equal(t, p.Data, got.Data)
	assert.Nil(t, got.Final)
}

func TestChunkPacket_MarshalUnmarshalRoundTrip_Final(t *testing.T) {
	p := ChunkPacket{
		Handle: handle.Derive("docs/café.txt", handle.File),
		Part:   3,
		Total:  3,
		Data:   []byte("tail bytes"),
		Final: &FinalFooter{
			Mtime:   1700000000,
			Length:  2048,
			RelPath: "docs/café.txt",
			CRC:     0xdeadbeefcafebabe,
		},
	}

	got, err := UnmarshalChunkPacket(p.Marshal(), true)
	require.NoError(t, err)
	require.NotNil(t, got.Final)
	assert.Equal(t, *p.Final, *got.Final)
	assert.Equal(t, p.Data, got.Data)
}

func TestUnmarshalChunkPacket_RejectsShortBuffer(t *testing.T) {
	_, err := UnmarshalChunkPacket([]byte{1, 2, 3}, false)
	require.Error(t, err)
}

func TestUnmarshalChunkPacket_RejectsTruncatedData(t *testing.T) {
	p := ChunkPacket{Handle: 1, Part: 1, Total: 1, Data: []byte("abcd")}
	raw := p.Marshal()

	_, err := UnmarshalChunkPacket(raw[:len(raw)-2], false)
	require.Error(t, err)
}
