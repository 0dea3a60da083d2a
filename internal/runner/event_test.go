package runner

import (
	"errors"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEvent(t *testing.T) {
	event, err := DecodeEvent([]byte(`{"bucket_name":"b","region":"us-east-1","s3_host":"s3.amazonaws.com","extra":1}`))
	require.NoError(t, err)
	assert.Equal(t, Event{BucketName: "b", Region: "us-east-1", S3Host: "s3.amazonaws.com"}, event)
}

func TestDecodeEventEmptyValues(t *testing.T) {
	event, err := DecodeEvent([]byte(`{"bucket_name":"","region":"","s3_host":""}`))
	require.NoError(t, err)
	assert.Equal(t, Event{}, event)
}

func TestDecodeEventMissingField(t *testing.T) {
	cases := map[string]string{
		"bucket_name": `{"region":"r","s3_host":"h"}`,
		"region":      `{"bucket_name":"b","s3_host":"h"}`,
		"s3_host":     `{"bucket_name":"b","region":"r"}`,
	}
	for field, payload := range cases {
		_, err := DecodeEvent([]byte(payload))

		var missing *MissingFieldError
		require.True(t, errors.As(err, &missing), field)
		assert.Equal(t, field, missing.Field)
		assert.Contains(t, err.Error(), field)
	}
}

func TestDecodeEventInvalid(t *testing.T) {
	payloads := []string{
		`not json`,
		`{"bucket_name":1,"region":"r","s3_host":"h"}`,
		`{"bucket_name":null,"region":"r","s3_host":"h"}`,
		`{"bucket_name":"b","region":"r","s3_host": null }`,
	}
	for _, payload := range payloads {
		_, err := DecodeEvent([]byte(payload))
		require.Error(t, err, payload)

		oopsErr, ok := oops.AsOops(err)
		require.True(t, ok, payload)
		assert.Equal(t, "invalid_event", oopsErr.Code())
	}
}
