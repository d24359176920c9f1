package agent

import "time"

func getCurrentTimeMs() int64 {
	return time.Now().UnixMilli()
}
