package protocol

import (
	"bytes"
	"fmt"
	"io"

	"github.com/google/uuid"
)

type LoginStart struct {
	Username string
	UUID     uuid.UUID
	HasUUID  bool
}

// ParseLoginStart decodes Login Start as sent by a client of version v.
// Before 1.19.3 the packet carries no UUID; between 1.19.3 and 1.20.1 the
// UUID is optional.
func ParseLoginStart(r io.Reader, v ClientVersion) (*LoginStart, error) {
	username, err := ReadString(r)
	if err != nil {
		return nil, err
	}
	ls := &LoginStart{Username: username}
	switch {
	case v.IsNewerThanOrEquals(V1_20_2):
		ls.HasUUID = true
	case v.IsNewerThanOrEquals(V1_19_3):
		if ls.HasUUID, err = ReadBool(r); err != nil {
			return nil, err
		}
	}
	if ls.HasUUID {
		if ls.UUID, err = ReadUUID(r); err != nil {
			return nil, err
		}
	}
	return ls, nil
}

// PlayerID returns the UUID the client sent, or the offline-mode UUID
// derived from the username when it sent none.
func (ls *LoginStart) PlayerID() uuid.UUID {
	if ls.HasUUID && ls.UUID != uuid.Nil {
		return ls.UUID
	}
	return GenerateOfflineUUID(ls.Username)
}

func CreateLoginStartPacket(username string, id uuid.UUID) *Packet {
	buf := new(bytes.Buffer)
	_ = WriteString(buf, username)
	_ = WriteUUID(buf, id)
	return &Packet{
		ID:      C2SLoginStart,
		Payload: buf.Bytes(),
	}
}

type LoginSuccess struct {
	UUID       uuid.UUID
	Username   string
	Properties []Property
}

type Property struct {
	Name      string
	Value     string
	Signature *string
}

// ParseLoginSuccess decodes Login Success as sent to a client of version v.
// Before 1.16 the UUID is a hyphenated string, and properties are only
// sent from 1.19 on.
func ParseLoginSuccess(r io.Reader, v ClientVersion) (*LoginSuccess, error) {
	var id uuid.UUID
	if v.IsOlderThan(V1_16) {
		raw, err := ReadString(r)
		if err != nil {
			return nil, err
		}
		if id, err = uuid.Parse(raw); err != nil {
			return nil, fmt.Errorf("login success uuid %q: %w", raw, ErrInvalidPacket)
		}
	} else {
		var err error
		if id, err = ReadUUID(r); err != nil {
			return nil, err
		}
	}
	username, err := ReadString(r)
	if err != nil {
		return nil, err
	}
	ls := &LoginSuccess{UUID: id, Username: username}
	if v.IsOlderThan(V1_19) {
		return ls, nil
	}
	propertiesLength, err := ReadVarint(r)
	if err != nil {
		return nil, err
	}
	if propertiesLength < 0 {
		return nil, ErrInvalidPacket
	}
	ls.Properties = make([]Property, 0, propertiesLength)
	for i := int32(0); i < propertiesLength; i++ {
		prop, err := ReadProperty(r)
		if err != nil {
			return nil, err
		}
		ls.Properties = append(ls.Properties, prop)
	}
	return ls, nil
}

func ReadProperty(r io.Reader) (Property, error) {
	name, err := ReadString(r)
	if err != nil {
		return Property{}, err
	}
	value, err := ReadString(r)
	if err != nil {
		return Property{}, err
	}
	hasSignature, err := ReadBool(r)
	if err != nil {
		return Property{}, err
	}
	var signature *string
	if hasSignature {
		sig, err := ReadString(r)
		if err != nil {
			return Property{}, err
		}
		signature = &sig
	}
	return Property{
		Name:      name,
		Value:     value,
		Signature: signature,
	}, nil
}

func CreateLoginSuccessPacket(id uuid.UUID, username string, v ClientVersion) *Packet {
	buf := new(bytes.Buffer)
	if v.IsOlderThan(V1_16) {
		_ = WriteString(buf, id.String())
	} else {
		_ = WriteUUID(buf, id)
	}
	_ = WriteString(buf, username)
	if v.IsNewerThanOrEquals(V1_19) {
		_ = WriteVarint(buf, 0)
	}
	if v.IsNewerThanOrEquals(V1_20_5) && v.IsOlderThan(V1_21_2) {
		// strict error handling
		_ = WriteBool(buf, true)
	}
	return &Packet{
		ID:      S2CLoginSuccess,
		Payload: buf.Bytes(),
	}
}

// ParseSetCompression returns the compression threshold announced by the
// server. A negative value disables compression.
func ParseSetCompression(r io.Reader) (int, error) {
	threshold, err := ReadVarint(r)
	if err != nil {
		return 0, err
	}
	return int(threshold), nil
}

func CreateSetCompressionPacket(threshold int32) *Packet {
	return &Packet{
		ID:      S2CSetCompression,
		Payload: AppendVarint(nil, threshold),
	}
}
