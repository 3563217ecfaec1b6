package eval

import "time"

func nowMsReal() int64 { return time.Now().UnixMilli() }
