// Copyright 2016 Sam Whited.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

//go:build !debug

package task

import "log"

// reportDoubleFinish diagnoses a promise finished more than once in release
// builds by logging instead of crashing the process.
func reportDoubleFinish() {
	log.Println("task: promise finished more than once (programming error)")
}
