package cache

import "time"

func SetNowForTest[T any](c *Cache[T], now func() time.Time) {
	c.now = now
}
