package wrapper

import (
	"bytes"
	"fmt"
	"math"

	"github.com/Versifine/packetgate/internal/protocol"
)

// Clientbound play packet ids per release.
var (
	keepAliveIDs = idTable{
		{protocol.V1_8, 0x00}, {protocol.V1_9, 0x1F}, {protocol.V1_13, 0x21},
		{protocol.V1_16_5, 0x1F}, {protocol.V1_17, 0x21}, {protocol.V1_19, 0x1E},
		{protocol.V1_19_4, 0x23}, {protocol.V1_20_2, 0x24}, {protocol.V1_20_5, 0x26},
		{protocol.V1_21_2, 0x27}, {protocol.V1_21_5, 0x26}, {protocol.V1_21_9, 0x2B},
	}
	legacyChatIDs = idTable{
		{protocol.V1_8, 0x02}, {protocol.V1_9, 0x0F}, {protocol.V1_13, 0x0E},
		{protocol.V1_17, 0x0F},
	}
	systemChatIDs = idTable{
		{protocol.V1_19, 0x5F}, {protocol.V1_19_4, 0x64}, {protocol.V1_20_2, 0x67},
		{protocol.V1_20_5, 0x6C}, {protocol.V1_21_2, 0x73}, {protocol.V1_21_5, 0x72},
		{protocol.V1_21_9, 0x77},
	}
	legacyTitleIDs = idTable{
		{protocol.V1_8, 0x45}, {protocol.V1_12_2, 0x48}, {protocol.V1_13, 0x4B},
		{protocol.V1_16_5, 0x4F},
	}
	titleTextIDs = idTable{
		{protocol.V1_17, 0x59}, {protocol.V1_19, 0x5B}, {protocol.V1_19_4, 0x60},
		{protocol.V1_20_2, 0x63}, {protocol.V1_20_5, 0x65}, {protocol.V1_21_2, 0x6C},
		{protocol.V1_21_5, 0x6B}, {protocol.V1_21_9, 0x70},
	}
	subtitleTextIDs = idTable{
		{protocol.V1_17, 0x57}, {protocol.V1_19, 0x59}, {protocol.V1_19_4, 0x5E},
		{protocol.V1_20_2, 0x61}, {protocol.V1_20_5, 0x63}, {protocol.V1_21_2, 0x6A},
		{protocol.V1_21_5, 0x69}, {protocol.V1_21_9, 0x6E},
	}
	relativeMoveIDs = idTable{
		{protocol.V1_8, 0x15}, {protocol.V1_9, 0x25}, {protocol.V1_13, 0x28},
		{protocol.V1_16_5, 0x27}, {protocol.V1_17, 0x29}, {protocol.V1_19, 0x26},
		{protocol.V1_19_4, 0x2B}, {protocol.V1_20_2, 0x2C}, {protocol.V1_20_5, 0x2E},
		{protocol.V1_21_2, 0x2F}, {protocol.V1_21_9, 0x33},
	}
	bundleDelimiterIDs    = idTable{{protocol.V1_19_4, 0x00}}
	chunkBatchFinishedIDs = idTable{{protocol.V1_20_2, 0x0C}, {protocol.V1_21_9, 0x0B}}
)

// Legacy Title packet actions (before 1.17).
const (
	titleActionTitle    int32 = 0
	titleActionSubtitle int32 = 1
)

type KeepAlive struct {
	Base
	KeepAliveID int64
}

func NewKeepAlive(id int64) *KeepAlive {
	return &KeepAlive{KeepAliveID: id}
}

func (*KeepAlive) Name() string { return "keep_alive" }

func (p *KeepAlive) PrepareForSend() error {
	return p.finalize(p.Name(), keepAliveIDs, func(w *bytes.Buffer, v protocol.ClientVersion) error {
		if v.IsOlderThan(protocol.V1_12_2) {
			return protocol.WriteVarint(w, int32(p.KeepAliveID))
		}
		return protocol.WriteInt64(w, p.KeepAliveID)
	})
}

// SystemChat is a server message shown in chat, or above the hotbar when
// Overlay is set. Clients before 1.19 receive it as a legacy chat packet.
type SystemChat struct {
	Base
	Text    string
	Overlay bool
}

func NewSystemChat(text string, overlay bool) *SystemChat {
	return &SystemChat{Text: text, Overlay: overlay}
}

func (*SystemChat) Name() string { return "system_chat" }

func (p *SystemChat) PrepareForSend() error {
	if p.ClientVersion().IsKnown() && p.ClientVersion().IsOlderThan(protocol.V1_19) {
		return p.finalize(p.Name(), legacyChatIDs, p.encodeLegacy)
	}
	return p.finalize(p.Name(), systemChatIDs, func(w *bytes.Buffer, v protocol.ClientVersion) error {
		if err := protocol.WriteText(w, p.Text, v); err != nil {
			return err
		}
		return protocol.WriteBool(w, p.Overlay)
	})
}

func (p *SystemChat) encodeLegacy(w *bytes.Buffer, v protocol.ClientVersion) error {
	if err := protocol.WriteText(w, p.Text, v); err != nil {
		return err
	}
	position := byte(1)
	if p.Overlay {
		position = 2
	}
	if err := protocol.WriteByte(w, position); err != nil {
		return err
	}
	if v.IsNewerThanOrEquals(protocol.V1_16) {
		// sender, nil for system messages
		_, err := w.Write(make([]byte, 16))
		return err
	}
	return nil
}

// Title sets both title lines at once. No release has a single packet for
// that, so it only reaches the wire through the title correction, which
// splits it into TitleText and SubtitleText.
type Title struct {
	Base
	Title    string
	Subtitle string
}

func NewTitle(title, subtitle string) *Title {
	return &Title{Title: title, Subtitle: subtitle}
}

func (*Title) Name() string { return "title" }

func (p *Title) PrepareForSend() error {
	p.buffer = nil
	return mismatch(p.Name(), p.ClientVersion())
}

type TitleText struct {
	Base
	Text string
}

func NewTitleText(text string) *TitleText {
	return &TitleText{Text: text}
}

func (*TitleText) Name() string { return "title_text" }

func (p *TitleText) PrepareForSend() error {
	return prepareTitleLine(&p.Base, p.Name(), titleActionTitle, titleTextIDs, p.Text)
}

type SubtitleText struct {
	Base
	Text string
}

func NewSubtitleText(text string) *SubtitleText {
	return &SubtitleText{Text: text}
}

func (*SubtitleText) Name() string { return "subtitle_text" }

func (p *SubtitleText) PrepareForSend() error {
	return prepareTitleLine(&p.Base, p.Name(), titleActionSubtitle, subtitleTextIDs, p.Text)
}

// prepareTitleLine encodes one title line: a dedicated packet from 1.17,
// an action of the legacy Title packet before.
func prepareTitleLine(b *Base, name string, action int32, modern idTable, text string) error {
	if b.version.IsKnown() && b.version.IsOlderThan(modern.since()) {
		return b.finalize(name, legacyTitleIDs, func(w *bytes.Buffer, v protocol.ClientVersion) error {
			if err := protocol.WriteVarint(w, action); err != nil {
				return err
			}
			return protocol.WriteText(w, text, v)
		})
	}
	return b.finalize(name, modern, func(w *bytes.Buffer, v protocol.ClientVersion) error {
		return protocol.WriteText(w, text, v)
	})
}

// EntityRelativeMove moves an entity by a delta in blocks. The delta is
// fixed-point on the wire (1/4096 block from 1.9, 1/32 before) so a single
// packet only covers a few blocks per axis.
type EntityRelativeMove struct {
	Base
	EntityID   int32
	DX, DY, DZ float64
	OnGround   bool
}

func NewEntityRelativeMove(entityID int32, dx, dy, dz float64, onGround bool) *EntityRelativeMove {
	return &EntityRelativeMove{EntityID: entityID, DX: dx, DY: dy, DZ: dz, OnGround: onGround}
}

func (*EntityRelativeMove) Name() string { return "entity_relative_move" }

// moveScale returns the fixed-point scale of relative move deltas for
// client version v and the largest encodable magnitude in those units.
func moveScale(v protocol.ClientVersion) (scale float64, maxUnits int64) {
	if v.IsOlderThan(protocol.V1_9) {
		return 32, math.MaxInt8
	}
	return 4096, math.MaxInt16
}

// MaxRelativeMove is the largest per-axis delta, in blocks, one relative
// move can carry for client version v.
func MaxRelativeMove(v protocol.ClientVersion) float64 {
	scale, maxUnits := moveScale(v)
	return float64(maxUnits) / scale
}

func (p *EntityRelativeMove) maxDelta() float64 {
	return max(math.Abs(p.DX), math.Abs(p.DY), math.Abs(p.DZ))
}

func (p *EntityRelativeMove) PrepareForSend() error {
	v := p.ClientVersion()
	if v.IsKnown() && p.maxDelta() > MaxRelativeMove(v) {
		p.buffer = nil
		return fmt.Errorf("%w: delta %.3f exceeds %.3f", mismatch(p.Name(), v), p.maxDelta(), MaxRelativeMove(v))
	}
	return p.finalize(p.Name(), relativeMoveIDs, func(w *bytes.Buffer, v protocol.ClientVersion) error {
		if err := protocol.WriteVarint(w, p.EntityID); err != nil {
			return err
		}
		scale, _ := moveScale(v)
		for _, d := range [3]float64{p.DX, p.DY, p.DZ} {
			units := math.Round(d * scale)
			var err error
			if v.IsOlderThan(protocol.V1_9) {
				err = protocol.WriteByte(w, byte(int8(units)))
			} else {
				err = protocol.WriteShort(w, int16(units))
			}
			if err != nil {
				return err
			}
		}
		return protocol.WriteBool(w, p.OnGround)
	})
}

// BundleDelimiter opens or closes a bundle of packets the client applies
// in the same tick. It exists from 1.19.4.
type BundleDelimiter struct {
	Base
}

func NewBundleDelimiter() *BundleDelimiter {
	return &BundleDelimiter{}
}

func (*BundleDelimiter) Name() string { return "bundle_delimiter" }

func (p *BundleDelimiter) PrepareForSend() error {
	return p.finalize(p.Name(), bundleDelimiterIDs, func(*bytes.Buffer, protocol.ClientVersion) error {
		return nil
	})
}

// ChunkBatchFinished ends a chunk batch. It exists from 1.20.2.
type ChunkBatchFinished struct {
	Base
	BatchSize int32
}

func NewChunkBatchFinished(size int32) *ChunkBatchFinished {
	return &ChunkBatchFinished{BatchSize: size}
}

func (*ChunkBatchFinished) Name() string { return "chunk_batch_finished" }

func (p *ChunkBatchFinished) PrepareForSend() error {
	return p.finalize(p.Name(), chunkBatchFinishedIDs, func(w *bytes.Buffer, _ protocol.ClientVersion) error {
		return protocol.WriteVarint(w, p.BatchSize)
	})
}
