package websocket

import "time"

// Connection tuning shared by the hub and client pumps
const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512

	// snapshots buffered per client before it is considered too slow
	sendBuffer      = 64
	broadcastBuffer = 64
)
