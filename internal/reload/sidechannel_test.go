package reload

import (
	"context"
	"fmt"
	"strings"
	"testing"
)

func TestSideChannelSend(t *testing.T) {
	var gotBinary string
	var gotArgs []string

	side := NewSideChannel("/opt/host/bin", "/home/dev/.extrun/profile", testLogger())
	side.invoke = func(_ context.Context, binary string, args []string) error {
		gotBinary = binary
		gotArgs = args
		return nil
	}

	payload := NewPayload("alpha@dev", "Alpha", "1.0-42")
	if err := side.Send(context.Background(), payload); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	if gotBinary != "/opt/host/bin" {
		t.Errorf("Unexpected binary: %q", gotBinary)
	}
	if len(gotArgs) != 3 || gotArgs[0] != "-profile" || gotArgs[1] != "/home/dev/.extrun/profile" {
		t.Fatalf("Unexpected args: %v", gotArgs)
	}
	if !strings.HasPrefix(gotArgs[2], "javascript:") {
		t.Errorf("Expected encoded script URL, got %q", gotArgs[2])
	}
}

func TestSideChannelSendFailure(t *testing.T) {
	side := NewSideChannel("/opt/host/bin", "/tmp/profile", testLogger())
	side.invoke = func(_ context.Context, _ string, _ []string) error {
		return fmt.Errorf("spawn failed")
	}

	err := side.Send(context.Background(), NewPayload("alpha@dev", "", "1.0"))
	if err == nil {
		t.Fatal("Expected error from failed invocation")
	}
	if !strings.Contains(err.Error(), "alpha@dev") {
		t.Errorf("Error should name the addon: %v", err)
	}
}
