package runner

import (
	"bytes"
	"encoding/json"

	"github.com/samber/oops"
)

var requiredFields = []string{"bucket_name", "region", "s3_host"}

// DecodeEvent looks up the required keys of a JSON event. A key that is not
// present at all yields a *MissingFieldError; an empty string is accepted.
func DecodeEvent(payload []byte) (event Event, err error) {
	var raw map[string]json.RawMessage
	if err = json.Unmarshal(payload, &raw); err != nil {
		err = oops.Code("invalid_event").Wrapf(err, "unable to decode event")
		return
	}

	values := make(map[string]string, len(requiredFields))
	for _, field := range requiredFields {
		value, ok := raw[field]
		if !ok {
			return Event{}, &MissingFieldError{Field: field}
		}

		var s string
		if bytes.Equal(bytes.TrimSpace(value), []byte("null")) || json.Unmarshal(value, &s) != nil {
			return Event{}, oops.Code("invalid_event").
				With("field", field).
				Errorf("field %q must be a string", field)
		}
		values[field] = s
	}

	event.BucketName = values["bucket_name"]
	event.Region = values["region"]
	event.S3Host = values["s3_host"]
	return
}
