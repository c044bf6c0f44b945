package lineprotocol

import "errors"

// ErrMalformed indicates a device line that does not match the expected
// grammar. Malformed lines are dropped and logged, never enqueued and
// never fatal: one garbage line (common during a device reset) must not
// block the lines after it.
//
// Check with errors.Is:
//
//	if errors.Is(err, lineprotocol.ErrMalformed) {
//	    // drop and log
//	}
var ErrMalformed = errors.New("lineprotocol: malformed line")
