package redisstore

import "github.com/redis/go-redis/v9"

// acquireLeaseScript is the compound operation spec section 4.4 step 7
// describes: write the lease (only if absent), track it for the reaper,
// patch the job's hash fields, and bump the worker's active count — all
// in one indivisible step so two replicas racing to lease the same job
// can never both win. The queue pop that precedes this (spec section 4.2)
// is a separate, already-atomic RPOP and does not need to share this
// script: once a job id leaves the queue, only one caller holds it.
//
// KEYS[1] = lease:{jobID}
// KEYS[2] = leases:tracked
// KEYS[3] = job:{jobID}
// KEYS[4] = worker:{workerID}
// ARGV[1] = lease JSON payload
// ARGV[2] = lease ttl seconds
// ARGV[3] = jobID
// ARGV[4..] = alternating job hash field/value pairs to HSET
var acquireLeaseScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
  return redis.error_reply('lease_exists')
end
redis.call('SET', KEYS[1], ARGV[1], 'EX', ARGV[2])
redis.call('SADD', KEYS[2], ARGV[3])
for i = 4, #ARGV, 2 do
  redis.call('HSET', KEYS[3], ARGV[i], ARGV[i+1])
end
redis.call('HINCRBY', KEYS[4], 'active', 1)
return redis.status_reply('OK')
`)
