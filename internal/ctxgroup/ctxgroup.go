// Copyright (c) Liam Stanley <me@liamstanley.io>. All rights reserved. Use
// of this source code is governed by the MIT license that can be found in
// the LICENSE file.

// Package ctxgroup provides a small helper for running a fixed set of
// goroutines bound to a shared context, where the first one to return an
// error cancels the context for the rest, and Wait returns that first
// error once every goroutine has exited.
package ctxgroup

import (
	"context"
	"sync"
)

// Group manages a set of goroutines sharing a cancellable context.
type Group struct {
	ctx    context.Context
	cancel context.CancelFunc

	wg      sync.WaitGroup
	errOnce sync.Once
	err     error
}

// New returns a Group derived from parent. Cancelling parent cancels every
// goroutine started with Go.
func New(parent context.Context) *Group {
	ctx, cancel := context.WithCancel(parent)
	return &Group{ctx: ctx, cancel: cancel}
}

// Go starts fn in its own goroutine, passing it the group's context. The
// first non-nil error returned by any fn cancels the context for the rest
// of the group and is recorded for Wait.
func (g *Group) Go(fn func(ctx context.Context) error) {
	g.wg.Add(1)

	go func() {
		defer g.wg.Done()

		if err := fn(g.ctx); err != nil {
			g.errOnce.Do(func() {
				g.err = err
				g.cancel()
			})
		}
	}()
}

// Wait blocks until every goroutine started with Go has returned, then
// returns the first non-nil error encountered, if any.
func (g *Group) Wait() error {
	g.wg.Wait()
	g.cancel()
	return g.err
}
