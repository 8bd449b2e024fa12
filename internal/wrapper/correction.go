package wrapper

import (
	"math"

	"github.com/Versifine/packetgate/internal/protocol"
)

// StandardCorrections returns the corrections for the wrappers in this
// package, keyed by wrapper name.
func StandardCorrections() map[string]Correction {
	return map[string]Correction{
		(*Title)(nil).Name():              splitTitle,
		(*EntityRelativeMove)(nil).Name(): splitRelativeMove,
		(*BundleDelimiter)(nil).Name():    dropBundleDelimiter,
	}
}

// splitTitle turns a combined title into its subtitle and title lines.
// The subtitle goes first: clients only display it once the title arrives.
func splitTitle(w Wrapper, _ protocol.ClientVersion) ([]Wrapper, error) {
	t, ok := w.(*Title)
	if !ok {
		return []Wrapper{w}, nil
	}
	var out []Wrapper
	if t.Subtitle != "" {
		sub := NewSubtitleText(t.Subtitle)
		sub.SetClientVersion(t.ClientVersion())
		out = append(out, sub)
	}
	if t.Title != "" || t.Subtitle != "" {
		title := NewTitleText(t.Title)
		title.SetClientVersion(t.ClientVersion())
		out = append(out, title)
	}
	return out, nil
}

// splitRelativeMove breaks a move too long for one packet into equal
// steps. Steps are computed on the quantized grid so they add up to
// exactly the delta a single unbounded packet would have carried.
func splitRelativeMove(w Wrapper, v protocol.ClientVersion) ([]Wrapper, error) {
	m, ok := w.(*EntityRelativeMove)
	if !ok || m.maxDelta() <= MaxRelativeMove(v) {
		return []Wrapper{w}, nil
	}
	scale, maxUnits := moveScale(v)
	total := [3]float64{
		math.Round(m.DX * scale),
		math.Round(m.DY * scale),
		math.Round(m.DZ * scale),
	}
	largest := max(math.Abs(total[0]), math.Abs(total[1]), math.Abs(total[2]))
	steps := int(math.Ceil(largest / float64(maxUnits-1)))

	out := make([]Wrapper, 0, steps)
	var done [3]float64
	for i := 1; i <= steps; i++ {
		var delta [3]float64
		for axis := range total {
			reached := math.Round(total[axis] * float64(i) / float64(steps))
			delta[axis] = (reached - done[axis]) / scale
			done[axis] = reached
		}
		step := NewEntityRelativeMove(m.EntityID, delta[0], delta[1], delta[2], m.OnGround)
		step.SetClientVersion(m.ClientVersion())
		out = append(out, step)
	}
	return out, nil
}

// dropBundleDelimiter suppresses bundle delimiters for clients that
// predate bundles; the bundled packets are then applied one by one.
func dropBundleDelimiter(w Wrapper, v protocol.ClientVersion) ([]Wrapper, error) {
	if v.IsOlderThan(bundleDelimiterIDs.since()) {
		return nil, nil
	}
	return []Wrapper{w}, nil
}
