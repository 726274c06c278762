package redis

import goredis "github.com/redis/go-redis/v9"

// promoteBatch bounds how many due jobs one dequeue moves from the
// scheduled set to the ready set.
const promoteBatch = 100

// maxPriority bounds |priority| so the ready score stays an exact integer.
const maxPriority = 900

// claimScript promotes due jobs of one queue into its ready set and pops up
// to limit of them, marking each running in a single atomic step.
//
// KEYS[1] scheduled set, KEYS[2] ready set, KEYS[3] running set
// ARGV[1] now (unix ms), ARGV[2] now (RFC3339), ARGV[3] limit,
// ARGV[4] promote batch, ARGV[5] job key prefix, ARGV[6] max priority
var claimScript = goredis.NewScript(`
local due = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'WITHSCORES', 'LIMIT', 0, ARGV[4])
local cap = tonumber(ARGV[6])
for i = 1, #due, 2 do
  local id = due[i]
  local runAt = tonumber(due[i + 1])
  local p = tonumber(redis.call('HGET', ARGV[5] .. id, 'priority') or '0') or 0
  if p > cap then p = cap elseif p < -cap then p = -cap end
  redis.call('ZREM', KEYS[1], id)
  redis.call('ZADD', KEYS[2], runAt - p * 10000000000000, id)
end

local popped = redis.call('ZPOPMIN', KEYS[2], ARGV[3])
local ids = {}
for i = 1, #popped, 2 do
  local id = popped[i]
  redis.call('HSET', ARGV[5] .. id, 'state', 'running', 'started_at', ARGV[2], 'heartbeat_at', ARGV[2], 'updated_at', ARGV[2])
  redis.call('ZADD', KEYS[3], ARGV[1], id)
  ids[#ids + 1] = id
end
return ids
`)
