package s3

import (
	"path"
	"strings"

	ierr "github.com/flexprice/lockbox/internal/errors"
)

const uriScheme = "s3://"

// LockboxFile is a lockbox file read from a bucket
type LockboxFile struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
	Data   []byte `json:"-"`
}

// Name is the base name of the object key
func (f *LockboxFile) Name() string {
	return path.Base(f.Key)
}

// IsURI reports whether s names an object as s3://bucket/key
func IsURI(s string) bool {
	return strings.HasPrefix(s, uriScheme)
}

// ParseURI splits s3://bucket/key
func ParseURI(uri string) (bucket, key string, err error) {
	if !IsURI(uri) {
		return "", "", ierr.NewErrorf("invalid s3 uri %q", uri).
			WithHint("S3 locations must look like s3://bucket/key").
			Mark(ierr.ErrValidation)
	}
	bucket, key, _ = strings.Cut(strings.TrimPrefix(uri, uriScheme), "/")
	if bucket == "" || key == "" || strings.HasSuffix(key, "/") {
		return "", "", ierr.NewErrorf("invalid s3 uri %q", uri).
			WithHint("S3 locations must look like s3://bucket/key").
			Mark(ierr.ErrValidation)
	}
	return bucket, key, nil
}
