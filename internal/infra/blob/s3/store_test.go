package s3

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cornucopia/internal/blob/core"
)

func TestMockStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMockForTests()
	assert.Equal(t, core.DriverS3, s.Driver())

	info, err := s.Put(ctx, "protocols/pcr_setup/pcr_setup_x.py", strings.NewReader("print('hi')\n"), core.PutOptions{
		ContentType: "text/x-python",
		Metadata:    map[string]string{"fingerprint": "abc123"},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 12, info.Size)
	assert.Equal(t, "text/x-python", info.ContentType)
	assert.Equal(t, "abc123", info.Metadata["fingerprint"])
	assert.NotEmpty(t, info.ETag)

	_, rc, err := s.Get(ctx, "protocols/pcr_setup/pcr_setup_x.py")
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "print('hi')\n", string(body))
}

func TestMockStoreCreateOnly(t *testing.T) {
	ctx := context.Background()
	s := NewMockForTests()
	_, err := s.Put(ctx, "k.py", strings.NewReader("a"), core.PutOptions{})
	require.NoError(t, err)
	_, err = s.Put(ctx, "k.py", strings.NewReader("b"), core.PutOptions{})
	assert.ErrorIs(t, err, core.ErrExists)
}

func TestMockStoreNotFound(t *testing.T) {
	ctx := context.Background()
	s := NewMockForTests()
	_, err := s.Head(ctx, "missing.py")
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, _, err = s.Get(ctx, "missing.py")
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = s.Put(ctx, "../escape.py", strings.NewReader("x"), core.PutOptions{})
	assert.ErrorIs(t, err, core.ErrInvalidKey)
}

func TestMockStoreList(t *testing.T) {
	ctx := context.Background()
	s := NewMockForTests()
	for _, k := range []string{"protocols/b/2.py", "protocols/a/1.py", "other/x"} {
		_, err := s.Put(ctx, k, strings.NewReader(k), core.PutOptions{})
		require.NoError(t, err)
	}
	got, err := s.List(ctx, "protocols/")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "protocols/a/1.py", got[0].Key)
	assert.EqualValues(t, len("protocols/a/1.py"), got[0].Size)
}

func TestNewRequiresBucket(t *testing.T) {
	_, err := New(context.Background(), Config{})
	assert.Error(t, err)
}

func TestOpenFromEnv(t *testing.T) {
	t.Setenv("CORNUCOPIA_ARTIFACT_S3_BUCKET", "")
	_, err := OpenFromEnv(context.Background())
	assert.ErrorContains(t, err, "CORNUCOPIA_ARTIFACT_S3_BUCKET")

	t.Setenv("CORNUCOPIA_ARTIFACT_S3_BUCKET", "scripts")
	t.Setenv("CORNUCOPIA_ARTIFACT_S3_REGION", "eu-west-1")
	t.Setenv("CORNUCOPIA_ARTIFACT_S3_ENDPOINT", "http://localhost:9000")
	t.Setenv("CORNUCOPIA_ARTIFACT_S3_PATH_STYLE", "TRUE")
	cfg := ConfigFromEnv()
	assert.Equal(t, Config{Bucket: "scripts", Region: "eu-west-1", Endpoint: "http://localhost:9000", PathStyle: true}, cfg)

	t.Setenv("AWS_ACCESS_KEY_ID", "id")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "secret")
	s, err := OpenFromEnv(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "scripts", s.bucket)
}
