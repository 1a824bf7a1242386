// Package sched provides the shared timing facilities used by device
// connections: a named, monitored task scheduler and a key-sequential
// executor that runs tasks for the same key strictly in submission order
// while different keys proceed concurrently.
//
// Manual is a deterministic Scheduler for tests; time only moves when the
// test calls Advance.
package sched
