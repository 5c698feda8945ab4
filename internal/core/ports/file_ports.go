package ports

import (
	"context"
	"io"
)

type UploadedFile struct {
	Filename    string
	ContentType string
	Size        int64
	Content     io.Reader
}

type FileStorage interface {
	// ResolvePictureURL stores the upload and returns its public URL.
	ResolvePictureURL(ctx context.Context, file UploadedFile) (string, error)
	DeleteFile(ctx context.Context, url string) error
}
