// clock.go
package main

import "time"

// Clock abstracts the time source so timestamps (created_at, last_seen,
// upload_date) are controllable in tests.
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the actual time.
type RealClock struct{}

// Now returns the current local time.
func (RealClock) Now() time.Time {
	return time.Now()
}

// MockClock implements Clock for testing purposes.
type MockClock struct {
	currentTime time.Time
}

// Now returns the mocked current time.
func (mc *MockClock) Now() time.Time {
	return mc.currentTime
}

// Advance moves the current time forward by the specified duration.
func (mc *MockClock) Advance(d time.Duration) {
	mc.currentTime = mc.currentTime.Add(d)
}
