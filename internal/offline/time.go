package offline

import "time"

// timeNow timestamps queued messages.
var timeNow = time.Now
