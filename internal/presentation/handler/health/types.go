package health

// healthResponse reports daemon liveness plus the state of the voice link
type healthResponse struct {
	Status      string `json:"status"`      // ok or unhealthy
	VoiceStatus string `json:"voiceStatus"` // connection status of the audio transport
	Timestamp   string `json:"timestamp"`   // Current timestamp in RFC3339 format
	Uptime      string `json:"uptime"`      // Daemon uptime since start
}
