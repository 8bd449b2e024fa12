package protocol

import (
	"io"
)

const (
	SEGMENT_BITS = 0x7F
	CONTINUE_BIT = 0x80
)

func ReadVarint(r io.Reader) (value int32, err error) {
	position := 0
	var currentByte [1]byte
	for {
		if _, err = io.ReadFull(r, currentByte[:]); err != nil {
			return 0, err
		}
		b := currentByte[0]
		value |= int32(b&SEGMENT_BITS) << position
		if (b & CONTINUE_BIT) == 0 {
			return value, nil
		}
		position += 7
		if position >= 32 {
			return 0, ErrVarIntTooLong
		}
	}
}

func WriteVarint(w io.Writer, value int32) error {
	_, err := w.Write(AppendVarint(nil, value))
	return err
}

// AppendVarint appends the VarInt encoding of value to dst.
func AppendVarint(dst []byte, value int32) []byte {
	uvalue := uint32(value)
	for {
		temp := byte(uvalue & SEGMENT_BITS)
		uvalue >>= 7
		if uvalue != 0 {
			temp |= CONTINUE_BIT
		}
		dst = append(dst, temp)
		if uvalue == 0 {
			return dst
		}
	}
}

// VarintLen returns the number of bytes value occupies once encoded.
func VarintLen(value int32) int {
	uvalue := uint32(value)
	n := 1
	for uvalue >= CONTINUE_BIT {
		uvalue >>= 7
		n++
	}
	return n
}
