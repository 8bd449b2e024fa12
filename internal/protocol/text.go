package protocol

import (
	"encoding/json"
	"fmt"
	"io"
)

// NBT tag types used by network text components.
const (
	TagEnd      = 0
	TagString   = 8
	TagCompound = 10
)

// WriteText writes a plain-text chat component in the form client v
// expects: a JSON string before 1.20.3, an anonymous NBT string tag after.
func WriteText(w io.Writer, text string, v ClientVersion) error {
	if v.IsOlderThan(V1_20_3) {
		data, err := json.Marshal(struct {
			Text string `json:"text"`
		}{text})
		if err != nil {
			return err
		}
		return WriteString(w, string(data))
	}
	if err := WriteByte(w, TagString); err != nil {
		return err
	}
	return writeNBTString(w, text)
}

// ReadText reads a chat component written for client v and returns its
// plain text. Only string tags and flat compounds of string fields are
// understood; richer components are rejected.
func ReadText(r io.Reader, v ClientVersion) (string, error) {
	if v.IsOlderThan(V1_20_3) {
		raw, err := ReadString(r)
		if err != nil {
			return "", err
		}
		var plain string
		if json.Unmarshal([]byte(raw), &plain) == nil {
			return plain, nil
		}
		var component struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal([]byte(raw), &component); err != nil {
			return "", fmt.Errorf("%w: text component: %v", ErrInvalidPacket, err)
		}
		return component.Text, nil
	}

	var tag [1]byte
	if _, err := io.ReadFull(r, tag[:]); err != nil {
		return "", err
	}
	switch tag[0] {
	case TagString:
		return readNBTString(r)
	case TagCompound:
		var text string
		for {
			if _, err := io.ReadFull(r, tag[:]); err != nil {
				return "", err
			}
			if tag[0] == TagEnd {
				return text, nil
			}
			if tag[0] != TagString {
				return "", fmt.Errorf("%w: unsupported text field tag %d", ErrInvalidPacket, tag[0])
			}
			key, err := readNBTString(r)
			if err != nil {
				return "", err
			}
			value, err := readNBTString(r)
			if err != nil {
				return "", err
			}
			if key == "text" {
				text = value
			}
		}
	default:
		return "", fmt.Errorf("%w: unsupported text tag %d", ErrInvalidPacket, tag[0])
	}
}

func writeNBTString(w io.Writer, s string) error {
	if len(s) > 0xFFFF {
		return fmt.Errorf("%w: nbt string too long", ErrInvalidPacket)
	}
	if err := WriteUnsignedShort(w, uint16(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readNBTString(r io.Reader) (string, error) {
	n, err := ReadUnsignedShort(r)
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}
