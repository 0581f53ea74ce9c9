package dimmerlog

import (
	"bytes"
	"strings"
	"testing"
)

// Init wires the package-level base logger exactly once (sync.Once), so
// every test in this file shares one underlying buffer rather than each
// getting its own.
var testBuf bytes.Buffer

func init() {
	Init(&testBuf)
}

func TestLoggerInfoIncludesPrefix(t *testing.T) {
	l := New("test")
	l.Info("hello %s", "world")

	if !strings.Contains(testBuf.String(), "[test] INFO: hello world") {
		t.Errorf("log output = %q, want it to contain the prefixed message", testBuf.String())
	}
}

func TestLoggerErrorIncludesPrefix(t *testing.T) {
	l := New("test")
	l.Error("boom: %d", 42)

	if !strings.Contains(testBuf.String(), "[test] ERROR: boom: 42") {
		t.Errorf("log output = %q, want it to contain the prefixed message", testBuf.String())
	}
}

func TestLoggerDebugGatedByEnableDebug(t *testing.T) {
	l := New("test")

	EnableDebug(false)
	before := testBuf.Len()
	l.Debug("quiet marker")
	if testBuf.Len() != before {
		t.Error("debug message logged while debug disabled")
	}

	EnableDebug(true)
	defer EnableDebug(false)
	l.Debug("loud marker")
	if !strings.Contains(testBuf.String(), "loud marker") {
		t.Error("debug message not logged while debug enabled")
	}
}
