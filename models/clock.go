package models

import "time"

// TimeNow is the single source of "now" for all expiry and lifecycle
// decisions. Tests replace it to get deterministic time.
var TimeNow = time.Now
