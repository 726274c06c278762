// Package redis implements store.Store on top of a go-redis client.
//
// Jobs and DLQ entries are stored as Redis Hashes. Each queue is a Sorted Set
// of job IDs scored by RunAt, so scheduled retries (free or charged) become
// visible to DequeueJobs once their time arrives. The DLQ index is a Sorted
// Set scored by FailedAt. All keys share the "freekiq:" prefix.
//
// The caller owns the client lifecycle:
//
//	client := goredis.NewClient(&goredis.Options{Addr: "localhost:6379"})
//	s := redis.New(client)
//	if err := s.Ping(ctx); err != nil { ... }
package redis
