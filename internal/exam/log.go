package exam

import (
	"encoding/json"
	"log"
	"time"
)

func logEvent(event string, fields map[string]any) {
	payload := make(map[string]any, len(fields)+2)
	for k, v := range fields {
		payload[k] = v
	}
	payload["ts"] = time.Now().UTC().Format(time.RFC3339Nano)
	payload["event"] = event
	b, err := json.Marshal(payload)
	if err != nil {
		return
	}
	log.Printf("%s", string(b))
}
