package wrapper

import (
	"math"
	"testing"

	"github.com/Versifine/packetgate/internal/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandardCorrectionsKeys(t *testing.T) {
	c := StandardCorrections()
	assert.Len(t, c, 3)
	for _, name := range []string{"title", "entity_relative_move", "bundle_delimiter"} {
		assert.Contains(t, c, name)
	}
}

func TestSplitTitle(t *testing.T) {
	title := NewTitle("Welcome", "to the server")
	title.SetClientVersion(protocol.V1_21)

	out, err := splitTitle(title, protocol.V1_21)
	require.NoError(t, err)
	require.Len(t, out, 2)

	sub, ok := out[0].(*SubtitleText)
	require.True(t, ok, "subtitle first, got %T", out[0])
	assert.Equal(t, "to the server", sub.Text)
	main, ok := out[1].(*TitleText)
	require.True(t, ok, "title second, got %T", out[1])
	assert.Equal(t, "Welcome", main.Text)
	assert.Equal(t, protocol.V1_21, main.ClientVersion())
}

func TestSplitTitlePartial(t *testing.T) {
	out, err := splitTitle(NewTitle("Only", ""), protocol.V1_21)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.IsType(t, &TitleText{}, out[0])

	out, err = splitTitle(NewTitle("", "Only"), protocol.V1_21)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.IsType(t, &SubtitleText{}, out[0])
	assert.IsType(t, &TitleText{}, out[1])

	out, err = splitTitle(NewTitle("", ""), protocol.V1_21)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestSplitRelativeMoveInRange(t *testing.T) {
	move := NewEntityRelativeMove(1, 2, 0, 0, true)
	out, err := splitRelativeMove(move, protocol.V1_21)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Same(t, move, out[0])
}

func TestSplitRelativeMoveSteps(t *testing.T) {
	tests := []struct {
		name  string
		v     protocol.ClientVersion
		dx    float64
		dy    float64
		steps int
	}{
		{"1.21 twenty blocks", protocol.V1_21, 20, -3.3, 3},
		{"1.21 just over", protocol.V1_21, 8.5, 0, 2},
		{"1.8 ten blocks", protocol.V1_8, 10, 1, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			move := NewEntityRelativeMove(9, tt.dx, tt.dy, 0, true)
			move.SetClientVersion(tt.v)
			out, err := splitRelativeMove(move, tt.v)
			require.NoError(t, err)
			require.Len(t, out, tt.steps)

			scale, _ := moveScale(tt.v)
			var sumX, sumY float64
			for _, w := range out {
				step := w.(*EntityRelativeMove)
				assert.Equal(t, int32(9), step.EntityID)
				assert.True(t, step.OnGround)
				require.NoError(t, step.PrepareForSend(), "every step must fit one packet")
				sumX += step.DX
				sumY += step.DY
			}
			assert.InDelta(t, math.Round(tt.dx*scale)/scale, sumX, 1e-9)
			assert.InDelta(t, math.Round(tt.dy*scale)/scale, sumY, 1e-9)
		})
	}
}

func TestDropBundleDelimiter(t *testing.T) {
	b := NewBundleDelimiter()
	out, err := dropBundleDelimiter(b, protocol.V1_19)
	require.NoError(t, err)
	assert.Empty(t, out)

	out, err = dropBundleDelimiter(b, protocol.V1_19_4)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Same(t, b, out[0])
}
