package protocol

import (
	"errors"
	"fmt"
	"testing"
)

var allErrors = []error{
	ErrVarIntTooLong,
	ErrPacketTooLarge,
	ErrInvalidPacket,
	ErrProtocolMismatch,
	ErrUnknownState,
	ErrUnknownVersion,
}

// TestErrorsAreDistinct 测试每个错误都是独立的
func TestErrorsAreDistinct(t *testing.T) {
	for i := 0; i < len(allErrors); i++ {
		for j := i + 1; j < len(allErrors); j++ {
			if errors.Is(allErrors[i], allErrors[j]) {
				t.Errorf("错误 %q 和 %q 不应相同", allErrors[i], allErrors[j])
			}
		}
	}
}

// TestErrorsSurviveWrapping 测试包装后 errors.Is 仍可匹配
func TestErrorsSurviveWrapping(t *testing.T) {
	for _, err := range allErrors {
		wrapped := fmt.Errorf("system_chat for 1.8: %w", err)
		if !errors.Is(wrapped, err) {
			t.Errorf("errors.Is(%v, %v) 应为 true", wrapped, err)
		}
	}
}
