package convert

import (
	"github.com/aws/aws-lambda-go/events"
)

// FromS3Event adapts an S3 notification (AWS or MinIO) into events. Keys
// stay encoded; the pipeline decodes them.
func FromS3Event(ev events.S3Event) []Event {
	out := make([]Event, 0, len(ev.Records))
	for _, r := range ev.Records {
		out = append(out, Event{
			Bucket:    r.S3.Bucket.Name,
			Key:       r.S3.Object.Key,
			Operation: r.EventName,
		})
	}
	return out
}
