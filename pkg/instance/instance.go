// Package instance names the running replica in logs and lock values.
package instance

import "os"

// GetID prefers WORKER_ID, then the platform dyno name, then a local default.
func GetID() string {
	for _, key := range []string{"WORKER_ID", "DYNO"} {
		if id := os.Getenv(key); id != "" {
			return id
		}
	}
	return "local"
}
