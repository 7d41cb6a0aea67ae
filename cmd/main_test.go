package main

import (
	"errors"
	"os"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWaitForShutdownOnSignal(t *testing.T) {
	signals := make(chan os.Signal, 1)
	signals <- syscall.SIGTERM

	assert.NoError(t, waitForShutdown(signals, make(chan error)))
}

func TestWaitForShutdownOnServerFailure(t *testing.T) {
	serverErr := make(chan error, 1)
	serverErr <- errors.New("address already in use")

	err := waitForShutdown(make(chan os.Signal), serverErr)
	assert.EqualError(t, err, "address already in use")
}
