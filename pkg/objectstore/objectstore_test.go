package objectstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestKeys(t *testing.T) {
	assert.Equal(t, "snapshot/s1/", RawPrefix("s1"))
	assert.Equal(t, "snapshot/s1/rounds.json", RawKey("s1", "rounds"))
	assert.Equal(t, "snapshot/s1/comment_votes/page_3.json", PageKey("s1", "comment_votes", 3))
	assert.Equal(t, "snapshot/s1/proposals/round_42.json", RoundProposalsKey("s1", 42))
	assert.Equal(t, "snapshot/s1/portal.db", DatabaseKey("s1"))
	assert.Equal(t, "snapshot/s1/manifest.json", ManifestKey("s1"))
	assert.Equal(t, "snapshot/s1/results/contribution_score.csv", ResultKey("s1", "contribution_score"))
	assert.Equal(t, "snapshot/s1/votes.csv", VotesKey("s1"))
}

func TestMemory(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	ok, err := m.Exists(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = m.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrNotFound)

	body := []byte("hello")
	require.NoError(t, m.Put(ctx, "a", body, ContentTypeJSON))
	body[0] = 'j'

	got, err := m.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got), "stored bytes are copied")
	assert.Equal(t, ContentTypeJSON, m.ContentType("a"))

	require.NoError(t, m.Put(ctx, "b/c", nil, ContentTypeCSV))
	assert.Equal(t, 2, m.PutCount())
	assert.Equal(t, []string{"b/c"}, m.Keys("b/"))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.Error(t, m.Put(cancelled, "x", nil, ContentTypeJSON))
	assert.Equal(t, 2, m.PutCount())
}

type mockS3 struct {
	s3iface.S3API
	mock.Mock
}

func (m *mockS3) PutObjectWithContext(ctx aws.Context, in *s3.PutObjectInput, _ ...request.Option) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, in)
	return &s3.PutObjectOutput{}, args.Error(0)
}

func (m *mockS3) GetObjectWithContext(ctx aws.Context, in *s3.GetObjectInput, _ ...request.Option) (*s3.GetObjectOutput, error) {
	args := m.Called(ctx, in)
	if out := args.Get(0); out != nil {
		return out.(*s3.GetObjectOutput), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockS3) HeadObjectWithContext(ctx aws.Context, in *s3.HeadObjectInput, _ ...request.Option) (*s3.HeadObjectOutput, error) {
	args := m.Called(ctx, in)
	return &s3.HeadObjectOutput{}, args.Error(0)
}

func TestS3_PutUsesPrefixAndContentType(t *testing.T) {
	client := new(mockS3)
	store := NewS3WithClient(client, "bucket", "/env/", zaptest.NewLogger(t))

	client.On("PutObjectWithContext", mock.Anything, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
		b, _ := io.ReadAll(in.Body)
		return aws.StringValue(in.Bucket) == "bucket" &&
			aws.StringValue(in.Key) == "env/snapshot/1/manifest.json" &&
			aws.StringValue(in.ContentType) == ContentTypeJSON &&
			string(b) == "{}"
	})).Return(nil).Once()

	require.NoError(t, store.Put(context.Background(), ManifestKey("1"), []byte("{}"), ContentTypeJSON))
	client.AssertExpectations(t)
}

func TestS3_Exists(t *testing.T) {
	client := new(mockS3)
	store := NewS3WithClient(client, "bucket", "", zaptest.NewLogger(t))

	isKey := func(key string) any {
		return mock.MatchedBy(func(in *s3.HeadObjectInput) bool { return aws.StringValue(in.Key) == key })
	}
	client.On("HeadObjectWithContext", mock.Anything, isKey("present")).Return(nil)
	client.On("HeadObjectWithContext", mock.Anything, isKey("missing")).
		Return(awserr.NewRequestFailure(awserr.New("NotFound", "Not Found", nil), 404, "req-1"))
	client.On("HeadObjectWithContext", mock.Anything, isKey("denied")).
		Return(awserr.NewRequestFailure(awserr.New("Forbidden", "Forbidden", nil), 403, "req-2"))

	ok, err := store.Exists(context.Background(), "present")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Exists(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = store.Exists(context.Background(), "denied")
	assert.Error(t, err)
}

func TestS3_Get(t *testing.T) {
	client := new(mockS3)
	store := NewS3WithClient(client, "bucket", "", zaptest.NewLogger(t))

	client.On("GetObjectWithContext", mock.Anything, mock.MatchedBy(func(in *s3.GetObjectInput) bool {
		return aws.StringValue(in.Key) == "k"
	})).Return(&s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader([]byte("data")))}, nil)
	client.On("GetObjectWithContext", mock.Anything, mock.MatchedBy(func(in *s3.GetObjectInput) bool {
		return aws.StringValue(in.Key) == "gone"
	})).Return(nil, awserr.New(s3.ErrCodeNoSuchKey, "no such key", nil))

	b, err := store.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, "data", string(b))

	_, err = store.Get(context.Background(), "gone")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestNewS3_RequiresBucket(t *testing.T) {
	_, err := NewS3(S3Config{Region: "us-east-1"}, nil)
	assert.Error(t, err)
}
