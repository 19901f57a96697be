package testutil

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sync"
)

// ErrTransient is the default failure returned by FakeTransport.
var ErrTransient = errors.New("transient network error")

// FakeTransport is an in-memory part transport. It derives the part number from
// the presigned URL (see PartURL) and can be scripted to fail specific parts.
type FakeTransport struct {
	// FailTimes maps a part number to the number of leading attempts that fail
	FailTimes map[int32]int

	// AlwaysFail lists part numbers that never succeed
	AlwaysFail map[int32]bool

	// NoETag lists part numbers whose transfers succeed without an integrity token
	NoETag map[int32]bool

	// Err is returned on scripted failures; defaults to ErrTransient
	Err error

	// Gate, when non-nil, holds every transfer until it is closed or ctx is done
	Gate chan struct{}

	// PartGates holds each listed part until its channel is closed or ctx is done
	PartGates map[int32]chan struct{}

	// Started, when non-nil, receives the part number of every transfer that begins
	Started chan int32

	mu          sync.Mutex
	attempts    map[int32]int
	bodies      map[int32][]byte
	inFlight    int
	maxInFlight int
	calls       int
}

// PutPart implements the scheduler transport.
func (f *FakeTransport) PutPart(
	ctx context.Context,
	url string,
	body io.Reader,
	size int64,
	_ string,
) (string, error) {
	partNumber := PartNumberFromURL(url)

	f.mu.Lock()
	if f.attempts == nil {
		f.attempts = make(map[int32]int)
		f.bodies = make(map[int32][]byte)
	}
	f.attempts[partNumber]++
	attempt := f.attempts[partNumber]
	f.calls++
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if f.Started != nil {
		f.Started <- partNumber
	}

	if f.Gate != nil {
		select {
		case <-f.Gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if gate, ok := f.PartGates[partNumber]; ok {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	if int64(len(data)) != size {
		return "", fmt.Errorf("part %d: read %d bytes, want %d", partNumber, len(data), size)
	}

	if f.AlwaysFail[partNumber] || attempt <= f.FailTimes[partNumber] {
		if f.Err != nil {
			return "", f.Err
		}
		return "", ErrTransient
	}

	f.mu.Lock()
	f.bodies[partNumber] = data
	f.mu.Unlock()

	if f.NoETag[partNumber] {
		return "", nil
	}
	sum := md5.Sum(data)
	return `"` + hex.EncodeToString(sum[:]) + `"`, nil
}

// Attempts returns the number of transfers started for a part.
func (f *FakeTransport) Attempts(partNumber int32) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts[partNumber]
}

// Calls returns the total number of transfers started.
func (f *FakeTransport) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// MaxInFlight returns the highest number of simultaneous transfers observed.
func (f *FakeTransport) MaxInFlight() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxInFlight
}

// InFlight returns the number of transfers currently running.
func (f *FakeTransport) InFlight() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inFlight
}

// Body returns the bytes stored for a part.
func (f *FakeTransport) Body(partNumber int32) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bodies[partNumber]
}

// ETagFor returns the integrity token FakeTransport reports for data.
func ETagFor(data []byte) string {
	sum := md5.Sum(data)
	return `"` + hex.EncodeToString(sum[:]) + `"`
}
