// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import "fmt"

// Error reports a failure to build or verify a script.
type Error struct {
	Description string
}

// Error satisfies the error interface.
func (e *Error) Error() string {
	return e.Description
}

func errOutOfRange(format string, args ...interface{}) error {
	return &Error{Description: fmt.Sprintf(format, args...)}
}

func errScript(format string, args ...interface{}) error {
	return &Error{Description: fmt.Sprintf(format, args...)}
}
