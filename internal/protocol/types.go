package protocol

import (
	"crypto/md5"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/google/uuid"
)

// MaxStringLength caps length-prefixed strings read off the wire.
const MaxStringLength = 32767 * 4

func ReadString(r io.Reader) (string, error) {
	length, err := ReadVarint(r)
	if err != nil {
		return "", err
	}
	if length < 0 || length > MaxStringLength {
		return "", fmt.Errorf("%w: string length %d", ErrInvalidPacket, length)
	}
	strBytes := make([]byte, length)
	if _, err := io.ReadFull(r, strBytes); err != nil {
		return "", err
	}
	return string(strBytes), nil
}

func WriteString(w io.Writer, s string) error {
	if err := WriteVarint(w, int32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func ReadUnsignedShort(r io.Reader) (uint16, error) {
	var buf [2]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(buf[:]), nil
}

func WriteUnsignedShort(w io.Writer, value uint16) error {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], value)
	_, err := w.Write(buf[:])
	return err
}

func WriteShort(w io.Writer, value int16) error {
	return WriteUnsignedShort(w, uint16(value))
}

func ReadBool(r io.Reader) (bool, error) {
	var buf [1]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return false, err
	}
	return buf[0] != 0, nil
}

func WriteBool(w io.Writer, value bool) error {
	var b byte
	if value {
		b = 1
	}
	return WriteByte(w, b)
}

func WriteByte(w io.Writer, value byte) error {
	_, err := w.Write([]byte{value})
	return err
}

func WriteInt64(w io.Writer, value int64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(value))
	_, err := w.Write(buf[:])
	return err
}

func ReadUUID(r io.Reader) (uuid.UUID, error) {
	var id uuid.UUID
	if _, err := io.ReadFull(r, id[:]); err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

func WriteUUID(w io.Writer, id uuid.UUID) error {
	_, err := w.Write(id[:])
	return err
}

// GenerateOfflineUUID generates a version-3 UUID for offline-mode players.
// Algorithm: MD5("OfflinePlayer:" + username), then set version=3 and variant=RFC4122.
func GenerateOfflineUUID(username string) uuid.UUID {
	hash := md5.Sum([]byte("OfflinePlayer:" + username))
	// Set version to 3: byte 6 → 0011xxxx
	hash[6] = (hash[6] & 0x0F) | 0x30
	// Set variant to RFC 4122: byte 8 → 10xxxxxx
	hash[8] = (hash[8] & 0x3F) | 0x80
	return uuid.UUID(hash)
}
