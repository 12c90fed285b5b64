package service

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDetect(t *testing.T) {
	assert := assert.New(t)

	m := Detect()
	assert.NotEmpty(m.String())

	// cached: repeated probes agree
	assert.Equal(m, Detect())
}

func TestWaitRunningImmediate(t *testing.T) {
	assert := assert.New(t)

	orig := status
	defer func() { status = orig }()

	status = func(name string) error { return nil }

	start := time.Now()
	err := WaitRunning("salt-minion", 5*time.Second)
	assert.NoError(err)
	assert.Less(time.Since(start), time.Second)
}

func TestWaitRunningEventually(t *testing.T) {
	assert := assert.New(t)

	orig := status
	defer func() { status = orig }()

	calls := 0
	status = func(name string) error {
		calls++
		if calls < 3 {
			return errors.New("inactive")
		}
		return nil
	}

	err := WaitRunning("salt-minion", 10*time.Second)
	assert.NoError(err)
	assert.Equal(3, calls)
}

func TestWaitRunningTimeout(t *testing.T) {
	assert := assert.New(t)

	orig := status
	defer func() { status = orig }()

	status = func(name string) error { return errors.New("inactive") }

	err := WaitRunning("salt-minion", 100*time.Millisecond)
	assert.Error(err)
	assert.Contains(err.Error(), "did not come up")
}
