package gcp

import (
	"errors"
	"fmt"
	"testing"

	"cloud.google.com/go/storage"
	"github.com/parallaxdata/transcript-ingester/internal/store"
	"github.com/stretchr/testify/assert"
	"google.golang.org/api/googleapi"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want store.ErrorKind
	}{
		{
			name: "object not exist sentinel",
			err:  storage.ErrObjectNotExist,
			want: store.KindNotFound,
		},
		{
			name: "wrapped object not exist",
			err:  fmt.Errorf("reader: %w", storage.ErrObjectNotExist),
			want: store.KindNotFound,
		},
		{
			name: "http 404",
			err:  &googleapi.Error{Code: 404},
			want: store.KindNotFound,
		},
		{
			name: "http 403",
			err:  &googleapi.Error{Code: 403},
			want: store.KindAccessDenied,
		},
		{
			name: "http 401",
			err:  &googleapi.Error{Code: 401},
			want: store.KindAccessDenied,
		},
		{
			name: "http 400 tag validation",
			err:  &googleapi.Error{Code: 400},
			want: store.KindAccessDenied,
		},
		{
			name: "http 429",
			err:  &googleapi.Error{Code: 429},
			want: store.KindTransient,
		},
		{
			name: "http 503",
			err:  &googleapi.Error{Code: 503},
			want: store.KindTransient,
		},
		{
			name: "missing bucket is not a missing object",
			err:  storage.ErrBucketNotExist,
			want: store.KindOther,
		},
		{
			name: "plain error",
			err:  errors.New("connection reset"),
			want: store.KindOther,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classify("get", "some/key", tt.err)
			assert.Equal(t, tt.want, store.KindOf(err))

			var se *store.Error
			assert.ErrorAs(t, err, &se)
			assert.Equal(t, "get", se.Op)
			assert.Equal(t, "some/key", se.Key)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}
