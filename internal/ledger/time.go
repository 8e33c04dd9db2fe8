package ledger

import "time"

// timeNow sets LastUpdated on every new specification version.
var timeNow = time.Now
