package repository

import "time"

// nowFunc 测试中可替换的时钟
var nowFunc = time.Now

func timeFromUnix(sec int64) time.Time {
	return time.Unix(sec, 0)
}
