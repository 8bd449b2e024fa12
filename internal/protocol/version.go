package protocol

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// ClientVersion is the protocol number a client negotiated during the
// handshake. The zero value means the version is not known yet.
type ClientVersion int32

const (
	Unknown       ClientVersion = 0
	V1_8          ClientVersion = 47
	V1_9          ClientVersion = 107
	V1_12_2       ClientVersion = 340
	V1_13         ClientVersion = 393
	V1_16         ClientVersion = 735
	V1_16_5       ClientVersion = 754
	V1_17         ClientVersion = 755
	V1_18_2       ClientVersion = 758
	V1_19         ClientVersion = 759
	V1_19_3       ClientVersion = 761
	V1_19_4       ClientVersion = 762
	V1_20_2       ClientVersion = 764
	V1_20_3       ClientVersion = 765
	V1_20_5       ClientVersion = 766
	V1_21         ClientVersion = 767
	V1_21_2       ClientVersion = 768
	V1_21_4       ClientVersion = 769
	V1_21_5       ClientVersion = 770
	V1_21_9       ClientVersion = 773
	V1_21_11      ClientVersion = 774
	LatestRelease               = V1_21_11
)

var releaseNames = map[ClientVersion]string{
	V1_8:     "1.8",
	V1_9:     "1.9",
	V1_12_2:  "1.12.2",
	V1_13:    "1.13",
	V1_16:    "1.16",
	V1_16_5:  "1.16.5",
	V1_17:    "1.17",
	V1_18_2:  "1.18.2",
	V1_19:    "1.19",
	V1_19_3:  "1.19.3",
	V1_19_4:  "1.19.4",
	V1_20_2:  "1.20.2",
	V1_20_3:  "1.20.3",
	V1_20_5:  "1.20.5",
	V1_21:    "1.21",
	V1_21_2:  "1.21.2",
	V1_21_4:  "1.21.4",
	V1_21_5:  "1.21.5",
	V1_21_9:  "1.21.9",
	V1_21_11: "1.21.11",
}

func (v ClientVersion) String() string {
	if v == Unknown {
		return "unknown"
	}
	if name, ok := releaseNames[v]; ok {
		return name
	}
	return fmt.Sprintf("protocol %d", int32(v))
}

func (v ClientVersion) IsKnown() bool {
	return v != Unknown
}

func (v ClientVersion) IsNewerThanOrEquals(other ClientVersion) bool {
	return v >= other
}

func (v ClientVersion) IsOlderThan(other ClientVersion) bool {
	return v < other
}

// ParseClientVersion accepts either a release name ("1.20.2") or a raw
// protocol number ("764").
func ParseClientVersion(s string) (ClientVersion, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 32); err == nil && n > 0 {
		return ClientVersion(n), nil
	}
	for v, name := range releaseNames {
		if name == s {
			return v, nil
		}
	}
	return Unknown, fmt.Errorf("%w: %q", ErrUnknownVersion, s)
}

// KnownReleases lists the named releases, oldest first.
func KnownReleases() []ClientVersion {
	out := make([]ClientVersion, 0, len(releaseNames))
	for v := range releaseNames {
		out = append(out, v)
	}
	slices.Sort(out)
	return out
}
