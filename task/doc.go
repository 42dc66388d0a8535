// Copyright 2016 Sam Whited.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package task implements a single-producer, single-consumer future used
// throughout the client to represent an asynchronous result: a send that
// hasn't been acknowledged yet, an IQ awaiting a reply, a room join waiting
// on a self-presence.
//
// A Promise is created alongside its Task with New. The promise side is
// owned by whoever will eventually compute the result; the task side is
// owned by whoever is waiting on it. Exactly one of Finish or FinishError
// may be called on the promise, and exactly once. The task's owner reads
// the result with Wait (blocking the calling goroutine; it may be called
// repeatedly) or with Then (registering a continuation that runs on its
// own goroutine once the result is available; at most once per task).
//
// Unlike a bare channel, a Task carries cancellation: Cancel marks the task
// abandoned so that a registered continuation is dropped instead of run,
// and so that the promise side can check Cancelled to skip unnecessary
// work. A Task may also be bound to a context.Context; if that context is
// done by the time the promise finishes, the continuation is dropped as
// though the task had been cancelled.
package task // import "quietloop.im/xmpp/task"
