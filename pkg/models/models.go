package models

import "fmt"

// Address is a directory record. Nil fields are omitted from JSON output.
type Address struct {
	Street *string `json:"street,omitempty"`
	City   *string `json:"city,omitempty"`
}

// LogEntry is one audit row describing a handled or proxied call.
// ID is assigned by the storage layer, never by the caller.
type LogEntry struct {
	ID           int64  `bson:"_id" json:"id"`
	URL          string `bson:"url" json:"url"`
	Timestamp    int64  `bson:"timestamp" json:"timestamp"`
	PayloadSize  int    `bson:"payload_size" json:"payloadSize"`
	ResponseTime int64  `bson:"response_time" json:"responseTime"`
	StatusCode   int    `bson:"status_code" json:"statusCode"`
	CallerIP     string `bson:"caller_ip" json:"callerIp"`
}

func (e LogEntry) String() string {
	return fmt.Sprintf("LogEntry{id=%d, url='%s', timestamp=%d, payloadSize=%d, responseTime=%d, statusCode=%d, callerIP=%s}",
		e.ID, e.URL, e.Timestamp, e.PayloadSize, e.ResponseTime, e.StatusCode, e.CallerIP)
}
