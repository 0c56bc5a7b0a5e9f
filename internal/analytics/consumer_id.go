package analytics

import (
	"fmt"
	"os"
	"time"
)

// NewConsumerID creates a per-process consumer name for the Redis group.
func NewConsumerID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "api"
	}
	return fmt.Sprintf("%s-%d-%d", host, os.Getpid(), time.Now().UnixNano())
}
