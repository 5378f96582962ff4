package policies

import "time"

// Clock supplies "now" to the ledger.
type Clock func() time.Time

func SystemClock() time.Time { return time.Now().UTC() }
