package miniostorage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   Options
		want Options
	}{
		{
			name: "defaults",
			in:   Options{Endpoint: "minio"},
			want: Options{Endpoint: "minio:9000", Bucket: defaultBucket},
		},
		{
			name: "explicit port and bucket",
			in:   Options{Endpoint: "localhost:19000", Bucket: "jobs", User: "u", Pass: "p"},
			want: Options{Endpoint: "localhost:19000", Bucket: "jobs", User: "u", Pass: "p"},
		},
		{
			name: "empty endpoint stays empty",
			in:   Options{Bucket: "b"},
			want: Options{Bucket: "b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, normalize(tt.in))
		})
	}
}

func TestMinioJobStorage_PutNilReader(t *testing.T) {
	s := &MinioJobStorage{bucket: "b"}
	err := s.Put(context.Background(), "key", 10, "image/png", nil)
	require.ErrorIs(t, err, errNilReader)
}

func TestMinioJobStorage_DeleteEmptyKey(t *testing.T) {
	s := &MinioJobStorage{bucket: "b"}
	require.NoError(t, s.Delete(context.Background(), ""))
}
