package shutdown

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func testLogger() zerolog.Logger {
	return zerolog.New(nil).Level(zerolog.Disabled)
}

func TestShutdownNowRunsCallbacks(t *testing.T) {
	s := NewShutdown(testLogger())

	var ran atomic.Int64
	s.HookShutdownCallback("first", func() { ran.Add(1) }, 0)
	s.HookShutdownCallback("second", func() { ran.Add(1) }, time.Second)

	s.ShutdownNow()
	assert.Equal(t, int64(2), ran.Load())
}

func TestShutdownCancelsContext(t *testing.T) {
	s := NewShutdown(testLogger())

	select {
	case <-s.SysDown():
		t.Fatal("context done before shutdown")
	default:
	}

	s.ShutdownNow()

	select {
	case <-s.SysDown():
	default:
		t.Fatal("context not cancelled after shutdown")
	}
	assert.Error(t, s.Context().Err())
}

func TestShutdownMovesOnAfterCallbackTimeout(t *testing.T) {
	s := NewShutdown(testLogger())

	blocked := make(chan struct{})
	s.HookShutdownCallback("stuck", func() { <-blocked }, 50*time.Millisecond)

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.ShutdownNow()
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("shutdown never completed")
	}
	close(blocked)
}
