package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/flexprice/lockbox/internal/api/dto"
	"github.com/flexprice/lockbox/internal/config"
	ierr "github.com/flexprice/lockbox/internal/errors"
	"github.com/flexprice/lockbox/internal/logger"
	"github.com/flexprice/lockbox/internal/s3"
	"github.com/flexprice/lockbox/internal/types"
)

// fileReader loads lockbox files from local paths and s3:// uris
type fileReader struct {
	cfg *config.Configuration
	log *logger.Logger
	s3  s3.Service
}

func (r *fileReader) read(ctx context.Context, location string) (*dto.ImportFileRequest, error) {
	if s3.IsURI(location) {
		if r.s3 == nil {
			svc, err := s3.NewService(ctx, r.cfg, r.log)
			if err != nil {
				return nil, err
			}
			if svc == nil {
				return nil, ierr.NewErrorf("cannot read %s, s3 is not enabled", location).
					WithHint("Set s3.enabled to read lockbox files from S3").
					Mark(ierr.ErrValidation)
			}
			r.s3 = svc
		}
		file, err := r.s3.GetLockboxFile(ctx, location)
		if err != nil {
			return nil, err
		}
		return &dto.ImportFileRequest{
			ParseFileRequest: dto.ParseFileRequest{FileName: file.Name(), Content: file.Data},
			Source:           types.LockboxFileSourceS3,
		}, nil
	}

	content, err := os.ReadFile(location)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHintf("Could not read %s", location).
			Mark(ierr.ErrValidation)
	}
	return &dto.ImportFileRequest{
		ParseFileRequest: dto.ParseFileRequest{FileName: filepath.Base(location), Content: content},
		Source:           types.LockboxFileSourceLocal,
	}, nil
}
