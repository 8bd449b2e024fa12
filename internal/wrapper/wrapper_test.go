package wrapper

import (
	"bytes"
	"testing"

	"github.com/Versifine/packetgate/internal/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func prepared(t *testing.T, w Wrapper, v protocol.ClientVersion) *protocol.Packet {
	t.Helper()
	w.SetClientVersion(v)
	require.NoError(t, w.PrepareForSend())
	require.NotNil(t, w.Buffer())
	return w.Buffer()
}

func TestIDTableLookup(t *testing.T) {
	table := idTable{{protocol.V1_9, 0x10}, {protocol.V1_17, 0x20}}

	_, ok := table.lookup(protocol.V1_8)
	assert.False(t, ok)

	id, ok := table.lookup(protocol.V1_12_2)
	assert.True(t, ok)
	assert.Equal(t, int32(0x10), id)

	id, ok = table.lookup(protocol.V1_17)
	assert.True(t, ok)
	assert.Equal(t, int32(0x20), id)

	assert.Equal(t, protocol.V1_9, table.since())
	assert.Equal(t, protocol.Unknown, idTable(nil).since())
}

func TestPrepareRequiresVersion(t *testing.T) {
	w := NewKeepAlive(1)
	err := w.PrepareForSend()
	assert.ErrorIs(t, err, ErrVersionNotSet)
	assert.Nil(t, w.Buffer())
}

func TestSetClientVersionDiscardsBuffer(t *testing.T) {
	w := NewKeepAlive(7)
	prepared(t, w, protocol.V1_21)
	w.SetClientVersion(protocol.V1_21)
	assert.NotNil(t, w.Buffer(), "same version keeps the buffer")
	w.SetClientVersion(protocol.V1_8)
	assert.Nil(t, w.Buffer())
}

func TestKeepAliveEncoding(t *testing.T) {
	modern := prepared(t, NewKeepAlive(0x0102030405060708), protocol.V1_20_5)
	assert.Equal(t, int32(0x26), modern.ID)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, modern.Payload)

	legacy := prepared(t, NewKeepAlive(300), protocol.V1_8)
	assert.Equal(t, int32(0x00), legacy.ID)
	assert.Equal(t, []byte{0xAC, 0x02}, legacy.Payload)
}

func TestSystemChatEncoding(t *testing.T) {
	modern := prepared(t, NewSystemChat("hello", true), protocol.V1_21)
	assert.Equal(t, int32(0x6C), modern.ID)
	r := bytes.NewReader(modern.Payload)
	text, err := protocol.ReadText(r, protocol.V1_21)
	require.NoError(t, err)
	assert.Equal(t, "hello", text)
	overlay, err := protocol.ReadBool(r)
	require.NoError(t, err)
	assert.True(t, overlay)

	legacy := prepared(t, NewSystemChat("hello", false), protocol.V1_16_5)
	assert.Equal(t, int32(0x0E), legacy.ID)
	r = bytes.NewReader(legacy.Payload)
	text, err = protocol.ReadText(r, protocol.V1_16_5)
	require.NoError(t, err)
	assert.Equal(t, "hello", text)
	position, err := r.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byte(1), position)
	assert.Equal(t, 16, r.Len(), "1.16 carries a sender uuid")
}

func TestLegacyChatSenderByVersion(t *testing.T) {
	tests := []struct {
		version protocol.ClientVersion
		sender  int
	}{
		{protocol.V1_13, 0},
		{protocol.ClientVersion(734), 0},
		{protocol.V1_16, 16},
		{protocol.ClientVersion(751), 16},
		{protocol.V1_16_5, 16},
	}
	for _, tt := range tests {
		t.Run(tt.version.String(), func(t *testing.T) {
			pkt := prepared(t, NewSystemChat("hi", false), tt.version)
			r := bytes.NewReader(pkt.Payload)
			_, err := protocol.ReadText(r, tt.version)
			require.NoError(t, err)
			_, err = r.ReadByte()
			require.NoError(t, err)
			assert.Equal(t, tt.sender, r.Len())
		})
	}
}

func TestTitleLineEncoding(t *testing.T) {
	modern := prepared(t, NewTitleText("Welcome"), protocol.V1_19_4)
	assert.Equal(t, int32(0x60), modern.ID)
	text, err := protocol.ReadText(bytes.NewReader(modern.Payload), protocol.V1_19_4)
	require.NoError(t, err)
	assert.Equal(t, "Welcome", text)

	legacy := prepared(t, NewSubtitleText("to the server"), protocol.V1_12_2)
	assert.Equal(t, int32(0x48), legacy.ID)
	r := bytes.NewReader(legacy.Payload)
	action, err := protocol.ReadVarint(r)
	require.NoError(t, err)
	assert.Equal(t, titleActionSubtitle, action)
	text, err = protocol.ReadText(r, protocol.V1_12_2)
	require.NoError(t, err)
	assert.Equal(t, "to the server", text)
}

func TestCombinedTitleHasNoWireForm(t *testing.T) {
	w := NewTitle("a", "b")
	w.SetClientVersion(protocol.V1_21)
	assert.ErrorIs(t, w.PrepareForSend(), protocol.ErrProtocolMismatch)
	assert.Nil(t, w.Buffer())
}

func TestEntityRelativeMoveEncoding(t *testing.T) {
	pkt := prepared(t, NewEntityRelativeMove(42, 1, -0.5, 0, true), protocol.V1_21)
	assert.Equal(t, int32(0x2E), pkt.ID)
	assert.Equal(t, []byte{42, 0x10, 0x00, 0xF8, 0x00, 0x00, 0x00, 0x01}, pkt.Payload)

	legacy := prepared(t, NewEntityRelativeMove(42, 1, -0.5, 0, false), protocol.V1_8)
	assert.Equal(t, int32(0x15), legacy.ID)
	assert.Equal(t, []byte{42, 32, 0xF0, 0x00, 0x00}, legacy.Payload)
}

func TestEntityRelativeMoveOutOfRange(t *testing.T) {
	w := NewEntityRelativeMove(1, 10, 0, 0, false)
	w.SetClientVersion(protocol.V1_21)
	assert.ErrorIs(t, w.PrepareForSend(), protocol.ErrProtocolMismatch)

	w = NewEntityRelativeMove(1, 5, 0, 0, false)
	w.SetClientVersion(protocol.V1_8)
	assert.ErrorIs(t, w.PrepareForSend(), protocol.ErrProtocolMismatch)
	w.SetClientVersion(protocol.V1_9)
	assert.NoError(t, w.PrepareForSend())
}

func TestVersionGatedPackets(t *testing.T) {
	bundle := NewBundleDelimiter()
	bundle.SetClientVersion(protocol.V1_19)
	assert.ErrorIs(t, bundle.PrepareForSend(), protocol.ErrProtocolMismatch)
	pkt := prepared(t, bundle, protocol.V1_19_4)
	assert.Empty(t, pkt.Payload)

	batch := NewChunkBatchFinished(16)
	batch.SetClientVersion(protocol.V1_19_4)
	assert.ErrorIs(t, batch.PrepareForSend(), protocol.ErrProtocolMismatch)
	pkt = prepared(t, batch, protocol.V1_20_2)
	assert.Equal(t, int32(0x0C), pkt.ID)
	assert.Equal(t, []byte{16}, pkt.Payload)
}

func TestRawPassesThrough(t *testing.T) {
	payload := []byte{1, 2, 3}
	w := NewRaw(0x33, payload)
	require.NoError(t, w.PrepareForSend())
	assert.Equal(t, &protocol.Packet{ID: 0x33, Payload: []byte{1, 2, 3}}, w.Buffer())

	w.Buffer().Payload[0] = 9
	assert.Equal(t, byte(1), payload[0], "buffer must not alias the source payload")

	assert.ErrorIs(t, (&Raw{}).PrepareForSend(), protocol.ErrInvalidPacket)
}
