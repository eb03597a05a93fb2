// Package framework runs the long-lived tasks of a node.
//
// Every task is a Runnable. Periodic turns a Task into a Runnable which
// waits a fixed interval before each iteration, and Runner spawns
// Runnables and collects their errors. Timing goes through a
// clockwork.Clock so tests can drive a fake clock.
package framework
