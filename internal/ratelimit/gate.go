// Package ratelimit enforces global and per-host concurrency caps on
// outbound fetches, with exponential backoff scheduling for hosts that
// return throttling or server errors.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Release returns a slot to the gate. It must be invoked exactly once on
// every exit path after a successful Acquire.
type Release func()

// Gate admits fetch attempts subject to a global cap and a per-host cap.
// Hosts are keyed by registered domain (eTLD+1); counters are process
// local.
type Gate struct {
	globalSem  chan struct{}
	perHostCap int

	mu    sync.Mutex
	hosts map[string]*hostSlot
}

// hostSlot tracks one host bucket: its concurrency semaphore and the
// earliest time the next admission may proceed.
type hostSlot struct {
	sem         chan struct{}
	nextAllowed time.Time
	attempts    int
}

// New creates a Gate with the given caps.
func New(globalCap, perHostCap int) *Gate {
	if globalCap < 1 {
		globalCap = 1
	}
	if perHostCap < 1 {
		perHostCap = 1
	}

	return &Gate{
		globalSem:  make(chan struct{}, globalCap),
		perHostCap: perHostCap,
		hosts:      make(map[string]*hostSlot),
	}
}

// Acquire blocks until a slot is free in both the host bucket and the
// global bucket, and until any scheduled backoff for the host has elapsed.
func (g *Gate) Acquire(ctx context.Context, host string) (Release, error) {
	slot := g.slotFor(host)

	if err := g.waitBackoff(ctx, slot); err != nil {
		return nil, err
	}

	// Host slot first, so a busy host does not pin a global slot.
	select {
	case slot.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("failed to acquire host slot for %s: %w", host, ctx.Err())
	}

	select {
	case g.globalSem <- struct{}{}:
	case <-ctx.Done():
		<-slot.sem
		return nil, fmt.Errorf("failed to acquire global slot: %w", ctx.Err())
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			<-g.globalSem
			<-slot.sem
		})
	}

	return release, nil
}

// Penalize schedules the host's next admission after an exponential
// backoff. Call on 429 or 5xx responses.
func (g *Gate) Penalize(host string) {
	slot := g.slotFor(host)

	g.mu.Lock()
	defer g.mu.Unlock()

	slot.attempts++
	slot.nextAllowed = time.Now().Add(Backoff(slot.attempts))
}

// Reset clears a host's backoff state. Call after a successful fetch.
func (g *Gate) Reset(host string) {
	slot := g.slotFor(host)

	g.mu.Lock()
	defer g.mu.Unlock()

	slot.attempts = 0
	slot.nextAllowed = time.Time{}
}

// InFlight returns the number of currently admitted fetches for the host.
func (g *Gate) InFlight(host string) int {
	return len(g.slotFor(host).sem)
}

// slotFor returns the host's bucket, creating it lazily.
func (g *Gate) slotFor(host string) *hostSlot {
	g.mu.Lock()
	defer g.mu.Unlock()

	slot, ok := g.hosts[host]
	if !ok {
		slot = &hostSlot{sem: make(chan struct{}, g.perHostCap)}
		g.hosts[host] = slot
	}

	return slot
}

// waitBackoff sleeps until the host's next allowed admission time.
func (g *Gate) waitBackoff(ctx context.Context, slot *hostSlot) error {
	g.mu.Lock()
	wait := time.Until(slot.nextAllowed)
	g.mu.Unlock()

	if wait <= 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("failed to wait out host backoff: %w", ctx.Err())
	}
}
