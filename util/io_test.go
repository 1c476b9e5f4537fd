package util

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"testing"
)

func TestIsHarmless(t *testing.T) {
	harmless := []error{
		nil,
		io.EOF,
		net.ErrClosed,
		os.ErrClosed,
		fmt.Errorf("read: %w", io.ErrClosedPipe),
		&net.OpError{Op: "read", Net: "tcp", Err: net.ErrClosed},
	}
	for _, err := range harmless {
		if !IsHarmless(err) {
			t.Errorf("%v should be harmless", err)
		}
	}

	if IsHarmless(io.ErrUnexpectedEOF) {
		t.Error("ErrUnexpectedEOF should NOT be harmless")
	}
	if IsHarmless(errors.New("device reports framing error")) {
		t.Error("arbitrary errors should NOT be harmless")
	}
}
