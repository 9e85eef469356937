package lock

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAcquireRecordsHolder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "LOCK")

	l, err := Acquire(path, "msgr")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer func() { _ = l.Release() }()

	h, err := ReadHolder(path)
	if err != nil {
		t.Fatalf("ReadHolder() error = %v", err)
	}
	if h.Owner != "msgr" || h.PID != os.Getpid() || h.Since.IsZero() {
		t.Errorf("holder = %+v, want msgr with our pid", h)
	}
}

func TestSecondAcquireReportsHolder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "LOCK")

	l1, err := Acquire(path, "msgrd")
	if err != nil {
		t.Fatalf("first Acquire() error = %v", err)
	}
	defer func() { _ = l1.Release() }()

	_, err = Acquire(path, "msgrd")
	if !errors.Is(err, ErrHeld) {
		t.Fatalf("second Acquire() error = %v, want ErrHeld", err)
	}
	var held *HeldError
	if !errors.As(err, &held) {
		t.Fatalf("expected *HeldError, got %T", err)
	}
	if held.Holder.PID != os.Getpid() || held.Holder.Owner != "msgrd" {
		t.Errorf("holder = %+v", held.Holder)
	}
	if !strings.Contains(err.Error(), "locked by msgrd") {
		t.Errorf("message %q does not name the owner", err.Error())
	}
}

func TestReleaseFreesLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "LOCK")

	l, err := Acquire(path, "msgr")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if err := l.Release(); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if err := l.Release(); err != nil {
		t.Errorf("second Release() error = %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("lock file still present: %v", err)
	}

	again, err := Acquire(path, "msgr")
	if err != nil {
		t.Fatalf("Acquire() after Release error = %v", err)
	}
	_ = again.Release()
}

func TestReleaseNil(t *testing.T) {
	var l *Lock
	if err := l.Release(); err != nil {
		t.Errorf("nil Release() error = %v", err)
	}
}

func TestHeldErrorWithoutHolder(t *testing.T) {
	err := &HeldError{Path: "/x/LOCK"}
	if got := err.Error(); got != "/x/LOCK is locked by another process" {
		t.Errorf("Error() = %q", got)
	}
}
