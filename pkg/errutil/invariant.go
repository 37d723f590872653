// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package errutil

import "github.com/samber/oops"

// InvariantCode is the oops code carried by invariant violation panics.
const InvariantCode = "INVARIANT_VIOLATION"

// Invariant panics with an oops error when cond is false. It marks states
// that correct callers can never reach; it is not for input validation.
// kv are alternating context keys and values.
func Invariant(cond bool, msg string, kv ...any) {
	if cond {
		return
	}
	panic(oops.Code(InvariantCode).With(kv...).Errorf("invariant violated: %s", msg))
}

// MustNot panics with an invariant violation when err is non-nil. The cause
// is recorded as context rather than wrapped so the panic keeps InvariantCode.
func MustNot(err error, msg string, kv ...any) {
	if err == nil {
		return
	}
	panic(oops.Code(InvariantCode).
		With(kv...).
		With("cause", err.Error()).
		Errorf("invariant violated: %s", msg))
}
