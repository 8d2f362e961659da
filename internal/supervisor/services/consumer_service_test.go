// Tunegraph - Music Taste Matching and Community Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunegraph

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"
)

// fakeConsumer returns runErr immediately, or blocks until ctx is done.
type fakeConsumer struct {
	runErr  error
	started chan struct{}
	closed  atomic.Bool
}

func (f *fakeConsumer) Run(ctx context.Context) error {
	f.started <- struct{}{}
	if f.runErr != nil {
		return f.runErr
	}
	<-ctx.Done()
	return nil
}

func (f *fakeConsumer) Close() error {
	f.closed.Store(true)
	return nil
}

func TestConsumerService_ShutdownClosesConsumer(t *testing.T) {
	fc := &fakeConsumer{started: make(chan struct{}, 1)}
	svc := NewConsumerService(func() (Consumer, error) { return fc, nil })
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()
	waitStarted(t, fc.started)
	cancel()

	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Errorf("Serve = %v, want context.Canceled", err)
	}
	if !fc.closed.Load() {
		t.Error("consumer not closed")
	}
}

func TestConsumerService_Errors(t *testing.T) {
	t.Run("factory error", func(t *testing.T) {
		boom := errors.New("dial failed")
		svc := NewConsumerService(func() (Consumer, error) { return nil, boom })
		if err := svc.Serve(context.Background()); !errors.Is(err, boom) {
			t.Errorf("Serve = %v, want %v", err, boom)
		}
	})

	t.Run("run error", func(t *testing.T) {
		boom := errors.New("router crashed")
		fc := &fakeConsumer{runErr: boom, started: make(chan struct{}, 1)}
		svc := NewConsumerService(func() (Consumer, error) { return fc, nil })
		if err := svc.Serve(context.Background()); !errors.Is(err, boom) {
			t.Errorf("Serve = %v, want %v", err, boom)
		}
	})
}

func TestConsumerService_RestartBuildsFreshConsumer(t *testing.T) {
	started := make(chan struct{}, 8)
	var builds atomic.Int32
	svc := NewConsumerService(func() (Consumer, error) {
		if builds.Add(1) == 1 {
			return &fakeConsumer{runErr: errors.New("first fails"), started: started}, nil
		}
		return &fakeConsumer{started: started}, nil
	})

	sup := suture.New("test", suture.Spec{FailureBackoff: 10 * time.Millisecond, Timeout: time.Second})
	sup.Add(svc)
	ctx, cancel := context.WithCancel(context.Background())
	done := sup.ServeBackground(ctx)

	waitStarted(t, started)
	waitStarted(t, started)
	cancel()
	<-done

	if builds.Load() < 2 {
		t.Errorf("builds = %d, want at least 2", builds.Load())
	}
	if got := svc.String(); got != "trigger-consumer" {
		t.Errorf("String() = %q", got)
	}
}
