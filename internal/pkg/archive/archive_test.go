package archive

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/FormFox/internal/pkg/config"
)

type fakePutter struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakePutter) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.input = params
	f.body, _ = io.ReadAll(params.Body)
	return &s3.PutObjectOutput{}, nil
}

func TestObjectKey(t *testing.T) {
	d := Delivery{EventID: "evt/1 2", ReceivedAt: time.Date(2024, 2, 9, 23, 30, 0, 0, time.UTC)}

	assert.Equal(t, "webhooks/2024/02/09/evt_1_2.json", ObjectKey("/webhooks/", d))
	assert.Equal(t, "2024/02/09/evt_1_2.json", ObjectKey("", d))
}

func TestS3Archiver_Archive(t *testing.T) {
	putter := &fakePutter{}
	a := &S3Archiver{client: putter, bucket: "raw", prefix: "webhooks"}

	err := a.Archive(context.Background(), Delivery{
		EventID:    "evt-1",
		EventType:  "record.created",
		Body:       []byte(`{"id":"evt-1"}`),
		ReceivedAt: time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	assert.Equal(t, "raw", aws.ToString(putter.input.Bucket))
	assert.Equal(t, "webhooks/2024/01/05/evt-1.json", aws.ToString(putter.input.Key))
	assert.Equal(t, "record.created", putter.input.Metadata["event-type"])
	assert.Equal(t, `{"id":"evt-1"}`, string(putter.body))
}

func TestS3Archiver_ArchiveError(t *testing.T) {
	a := &S3Archiver{client: &fakePutter{err: errors.New("access denied")}, bucket: "raw"}

	err := a.Archive(context.Background(), Delivery{EventID: "evt-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}

func TestNew_DisabledReturnsNoop(t *testing.T) {
	a, err := New(context.Background(), config.ArchiveConfig{Enabled: false}, "dev")
	require.NoError(t, err)
	assert.IsType(t, Noop{}, a)
	assert.NoError(t, a.Archive(context.Background(), Delivery{}))
}
