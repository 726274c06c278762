// Package store defines the aggregate persistence interface.
//
// Each subsystem (job, dlq) declares its own store interface; [Store]
// composes them so one backend satisfies the whole engine.
//
// # Backends
//
//   - store/memory: in-process maps, for tests and development
//   - store/redis: hashes plus per-queue sorted sets on go-redis
//
// # Usage
//
//	rdb := goredis.NewClient(&goredis.Options{Addr: "localhost:6379"})
//	s := redis.New(rdb)
//	defer s.Close()
//
//	eng, err := engine.New(s, engine.WithDefaultFreeRetries(2))
package store
