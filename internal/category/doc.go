// Package category holds the per-domain state machines that turn readings into
// slot transitions.
//
// A machine is not safe for concurrent use: the dispatcher drives each one from
// a single owner goroutine, which is also what keeps same-category events in
// arrival order.
package category
