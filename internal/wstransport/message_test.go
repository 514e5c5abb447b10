package wstransport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeMessage_RoundTrip(t *testing.T) {
	frames := [][]byte{[]byte("host.example.com"), []byte("agent/1.0")}

	encoded := EncodeMessage(CmdRequestOfAuthentication, frames)

	cmd, decoded, err := DecodeMessage(encoded)
	require.NoError(t, err)
	assert.Equal(t, CmdRequestOfAuthentication, cmd)
	require.Len(t, decoded, 2)
	assert.Equal(t, "host.example.com", string(decoded[0]))
	assert.Equal(t, "agent/1.0", string(decoded[1]))
}

func TestEncodeDecodeMessage_NoFrames(t *testing.T) {
	encoded := EncodeMessage(CmdRequestHashStructure, nil)

	cmd, decoded, err := DecodeMessage(encoded)
	require.NoError(t, err)
	assert.Equal(t, CmdRequestHashStructure, cmd)
	assert.Empty(t, decoded)
}

func TestEncodeDecodeMessage_EmptyFrame(t *testing.T) {
	encoded := EncodeMessage(CmdSendChunkFile, [][]byte{{}, []byte("x")})

	_, decoded, err := DecodeMessage(encoded)
	require.NoError(t, err)
	require.Len(t, decoded, 2)
	assert.Empty(t, decoded[0])
	assert.Equal(t, "x", string(decoded[1]))
}

func TestDecodeMessage_TooShortErrors(t *testing.T) {
	_, _, err := DecodeMessage([]byte{0, 1})
	require.Error(t, err)
}

func TestDecodeMessage_TruncatedFrameErrors(t *testing.T) {
	encoded := EncodeMessage(CmdSendHashRoot, [][]byte{[]byte("12345678")})
	truncated := encoded[:len(encoded)-3]

	_, _, err := DecodeMessage(truncated)
	require.Error(t, err)
}

func TestCommandCode_String(t *testing.T) {
	assert.Equal(t, "SendChunkFile", CmdSendChunkFile.String())
	assert.Equal(t, "Unknown", CommandCode(999).String())
}

func TestNotice_String(t *testing.T) {
	assert.Equal(t, "FullSpace", NoticeFullSpace.String())
	assert.Equal(t, "Unknown", Notice(99).String())
}
