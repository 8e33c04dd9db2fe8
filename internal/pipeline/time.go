package pipeline

import "time"

// timeNow stamps LockedAt on new and redone checkpoints. Tests freeze it.
var timeNow = time.Now
