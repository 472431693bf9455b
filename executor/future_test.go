package executor_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/zhongdai/go-fspt/executor"
)

func TestFutureGetBlocksUntilComplete(t *testing.T) {
	pool := executor.New(1, 1, 1, time.Second)
	defer pool.Shutdown()

	start := make(chan struct{})
	future := pool.Submit(func() (any, error) {
		<-start
		return 42, nil
	})

	done := make(chan struct{})
	go func() {
		val, err := future.Get()
		assert.NoError(t, err)
		assert.Equal(t, 42, val)
		close(done)
	}()

	close(start)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Get did not return after completion")
	}
}

func TestFuturePropagatesError(t *testing.T) {
	pool := executor.New(1, 1, 1, time.Second)
	defer pool.Shutdown()

	wantErr := errors.New("boom")
	future := pool.Submit(func() (any, error) {
		return nil, wantErr
	})

	_, err := future.Get()
	assert.Equal(t, wantErr, err)
}
