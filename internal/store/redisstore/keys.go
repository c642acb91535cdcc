package redisstore

import "fmt"

const (
	keyQueueP0  = "queue:p0"
	keyQueueP1  = "queue:p1"
	keyLeaseSet = "leases:tracked"
)

func jobKey(id string) string        { return fmt.Sprintf("job:%s", id) }
func workerKey(id string) string     { return fmt.Sprintf("worker:%s", id) }
func leaseKey(id string) string      { return fmt.Sprintf("lease:%s", id) }
func eventsKey(id string) string     { return fmt.Sprintf("events:%s", id) }
func eventsChannel(id string) string { return fmt.Sprintf("events:chan:%s", id) }
