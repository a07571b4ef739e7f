package convert

import (
	"errors"
	"strings"
)

// OpCreated is the operation prefix of object-created notifications, e.g.
// "ObjectCreated:Put". MinIO adds an "s3:" namespace in front of it.
const OpCreated = "ObjectCreated"

// ErrInvalidEvent is returned for events that cannot be processed at all.
var ErrInvalidEvent = errors.New("invalid event")

// Event is a single object-store notification. Key is URL encoded the way
// S3 encodes keys in notifications ("+" for space).
type Event struct {
	Bucket    string `json:"bucket"`
	Key       string `json:"key"`
	Operation string `json:"operation"`
}

// Created returns an object-created event for an unencoded key.
func Created(bucket, key string) Event {
	return Event{
		Bucket:    bucket,
		Key:       EncodeKey(key),
		Operation: OpCreated + ":Put",
	}
}

// IsCreate reports whether the event announces a newly written object.
func (e Event) IsCreate() bool {
	return strings.HasPrefix(strings.TrimPrefix(e.Operation, "s3:"), OpCreated)
}
