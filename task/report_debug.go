// Copyright 2016 Sam Whited.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

//go:build debug

package task

// reportDoubleFinish diagnoses a promise finished more than once in debug
// builds by panicking so the bug is caught close to its source.
func reportDoubleFinish() {
	panic("task: promise finished more than once")
}
