// Package ratelimit gates sensitive endpoints with fixed-window counters.
// Counts may be slightly stale under concurrency; the limiter mitigates
// abuse, it does not do hard accounting.
package ratelimit

import (
	"context"
	"time"
)

// Class buckets endpoints into distinct rate policies.
type Class string

const (
	ClassLogin   Class = "login"
	ClassSignup  Class = "signup"
	ClassUpload  Class = "upload"
	ClassChat    Class = "chat"
	ClassDefault Class = "default"
)

// Policy is a fixed-window budget.
type Policy struct {
	Limit  int
	Window time.Duration
}

// policies is the closed per-class table.
var policies = map[Class]Policy{
	ClassLogin:   {Limit: 5, Window: 15 * time.Minute},
	ClassSignup:  {Limit: 3, Window: time.Hour},
	ClassUpload:  {Limit: 10, Window: time.Hour},
	ClassChat:    {Limit: 20, Window: time.Hour},
	ClassDefault: {Limit: 100, Window: time.Hour},
}

// PolicyFor returns the policy for a class, falling back to the default.
func PolicyFor(class Class) Policy {
	if p, ok := policies[class]; ok {
		return p
	}
	return policies[ClassDefault]
}

// Result is the outcome of a limit check.
type Result struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// RetryAfterSeconds rounds the hint up to whole seconds for HTTP surfaces.
func (r Result) RetryAfterSeconds() int {
	if r.RetryAfter <= 0 {
		return 0
	}
	secs := int(r.RetryAfter / time.Second)
	if r.RetryAfter%time.Second != 0 {
		secs++
	}
	return secs
}

// Limiter tracks per-identifier request counters within time windows.
type Limiter interface {
	// Check records one request for (identifier, class) and reports whether
	// it is within budget.
	Check(ctx context.Context, identifier string, class Class) (Result, error)
}
