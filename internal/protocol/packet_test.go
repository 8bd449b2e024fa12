package protocol

import (
	"bytes"
	"errors"
	"testing"
)

func TestReadPacket(t *testing.T) {
	tests := []struct {
		name    string
		input   []byte
		want    *Packet
		wantErr error
	}{
		{
			name: "正常数据包",
			input: []byte{
				0x06,                         // Length = 6
				0x01,                         // PacketID = 1
				0x48, 0x65, 0x6c, 0x6c, 0x6f, // "Hello"
			},
			want: &Packet{ID: 1, Payload: []byte("Hello")},
		},
		{
			name:  "空Payload",
			input: []byte{0x01, 0x00},
			want:  &Packet{ID: 0, Payload: []byte{}},
		},
		{
			name:  "大PacketID",
			input: []byte{0x03, 0x80, 0x01, 0x01},
			want:  &Packet{ID: 128, Payload: []byte{0x01}},
		},
		{
			name:    "Length为0",
			input:   []byte{0x00},
			wantErr: ErrInvalidPacket,
		},
		{
			name:    "Length声明大于实际数据",
			input:   []byte{0x10, 0x01, 0x48},
			wantErr: ErrInvalidPacket,
		},
		{
			name:    "超过最大长度",
			input:   AppendVarint(nil, MaxPacketSize+1),
			wantErr: ErrPacketTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadPacket(bytes.NewReader(tt.input), -1)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ReadPacket() error = %v, 期望 %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ReadPacket() 返回错误: %v", err)
			}
			if got.ID != tt.want.ID {
				t.Errorf("ReadPacket() ID = %v, want %v", got.ID, tt.want.ID)
			}
			if !bytes.Equal(got.Payload, tt.want.Payload) {
				t.Errorf("ReadPacket() Payload = %v, want %v", got.Payload, tt.want.Payload)
			}
		})
	}
}

func TestWritePacketUncompressed(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := WritePacket(buf, &Packet{ID: 1, Payload: []byte("Hello")}, -1); err != nil {
		t.Fatalf("WritePacket() 返回错误: %v", err)
	}
	want := []byte{0x06, 0x01, 0x48, 0x65, 0x6c, 0x6c, 0x6f}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Errorf("WritePacket() = %v, 期望 %v", buf.Bytes(), want)
	}
}

// TestWritePacketBelowThreshold 压缩开启但未达阈值时 Data Length 为 0
func TestWritePacketBelowThreshold(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := WritePacket(buf, &Packet{ID: 1, Payload: []byte("Hi")}, 256); err != nil {
		t.Fatalf("WritePacket() 返回错误: %v", err)
	}
	want := []byte{0x04, 0x00, 0x01, 'H', 'i'}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Errorf("WritePacket() = %v, 期望 %v", buf.Bytes(), want)
	}
}

func TestPacketRoundTrip(t *testing.T) {
	packets := []*Packet{
		{ID: 0x00, Payload: []byte{}},
		{ID: 0x26, Payload: []byte("keep-alive")},
		{ID: 0x7F, Payload: bytes.Repeat([]byte("compress me "), 200)},
	}
	for _, threshold := range []int{-1, 0, 64, 256} {
		buf := &bytes.Buffer{}
		for _, p := range packets {
			if err := WritePacket(buf, p, threshold); err != nil {
				t.Fatalf("threshold=%d WritePacket() 错误: %v", threshold, err)
			}
		}
		for _, want := range packets {
			got, err := ReadPacket(buf, threshold)
			if err != nil {
				t.Fatalf("threshold=%d ReadPacket() 错误: %v", threshold, err)
			}
			if got.ID != want.ID || !bytes.Equal(got.Payload, want.Payload) {
				t.Errorf("threshold=%d 往返结果 %v, 期望 %v", threshold, got, want)
			}
		}
		if buf.Len() != 0 {
			t.Errorf("threshold=%d 读取后剩余 %d 字节", threshold, buf.Len())
		}
	}
}

func TestPacketClone(t *testing.T) {
	orig := &Packet{ID: 3, Payload: []byte{1, 2, 3}}
	clone := orig.Clone()
	clone.Payload[0] = 9
	if orig.Payload[0] != 1 {
		t.Error("修改克隆不应影响原始 Payload")
	}
	if orig.Len() != 4 {
		t.Errorf("Len() = %d, 期望 4", orig.Len())
	}
	var nilPacket *Packet
	if nilPacket.Clone() != nil {
		t.Error("nil.Clone() 应返回 nil")
	}
}

func TestReadFrameThenDecode(t *testing.T) {
	want := &Packet{ID: 0x03, Payload: bytes.Repeat([]byte{0xAB}, 300)}
	buf := &bytes.Buffer{}
	if err := WritePacket(buf, want, 256); err != nil {
		t.Fatalf("WritePacket() 错误: %v", err)
	}

	frame, err := ReadFrame(buf, 0)
	if err != nil {
		t.Fatalf("ReadFrame() 错误: %v", err)
	}
	got, err := DecodeFrame(frame, 256)
	if err != nil {
		t.Fatalf("DecodeFrame() 错误: %v", err)
	}
	if got.ID != want.ID || !bytes.Equal(got.Payload, want.Payload) {
		t.Errorf("DecodeFrame() = %v, 期望 %v", got, want)
	}
}

func TestReadFrameLimit(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := WritePacket(buf, &Packet{ID: 1, Payload: make([]byte, 64)}, -1); err != nil {
		t.Fatalf("WritePacket() 错误: %v", err)
	}
	if _, err := ReadFrame(buf, 16); !errors.Is(err, ErrPacketTooLarge) {
		t.Errorf("ReadFrame() 错误 = %v, 期望 %v", err, ErrPacketTooLarge)
	}
}
