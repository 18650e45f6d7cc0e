package handlers

import (
	"encoding/json"
	"net/http"
	"time"
)

var started = time.Now()

// Health — liveness для балансировщика/оркестратора.
func Health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status": "ok",
		"uptime": time.Since(started).Round(time.Second).String(),
	})
}
