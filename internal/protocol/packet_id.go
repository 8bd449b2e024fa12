package protocol

const (
	// Handshaking (C→S)
	C2SHandshake = 0x00

	// Login (C→S)
	C2SLoginStart        = 0x00
	C2SLoginAcknowledged = 0x03

	// Login (S→C)
	S2CLoginDisconnect = 0x00
	S2CLoginSuccess    = 0x02
	S2CSetCompression  = 0x03
)

// ConfigFinishID returns the id of Finish Configuration (S→C) and of its
// acknowledgement (C→S); both moved when cookies were added in 1.20.5.
func ConfigFinishID(v ClientVersion) int32 {
	if v.IsOlderThan(V1_20_5) {
		return 0x02
	}
	return 0x03
}

// HasConfigurationPhase reports whether login is followed by the
// configuration phase rather than going straight to play.
func HasConfigurationPhase(v ClientVersion) bool {
	return v.IsNewerThanOrEquals(V1_20_2)
}
