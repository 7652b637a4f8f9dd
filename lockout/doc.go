// Package lockout tracks consecutive authentication failures per identity
// and escalates a failure streak into a timed lockout.
//
// The signal here is narrower than request volume: callers record explicit
// authentication outcomes (failure or success), and the tracker converts a
// streak of failures within the attempt window into a lockout that holds
// until its deadline passes, regardless of further attempts. A success
// deletes the streak outright.
//
// [MemoryTracker] is the default single-process implementation;
// [RedisTracker] shares streak state across instances. Both evaluate expiry
// lazily against the current time, so no cleanup pass is required for
// correctness.
package lockout
