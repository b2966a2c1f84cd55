// Package cloudinary stores payment-proof images on Cloudinary.
package cloudinary

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// ErrNotConfigured is returned by Upload when no credentials were supplied
var ErrNotConfigured = errors.New("cloudinary is not configured")

const uploadTimeout = 60 * time.Second

// ProofStore uploads payment proofs into one folder
type ProofStore struct {
	cld    *cloudinary.Cloudinary
	folder string
}

// NewProofStore creates a ProofStore. Empty credentials yield a store whose
// Upload always fails with ErrNotConfigured.
func NewProofStore(cloudName, apiKey, apiSecret, folder string) (*ProofStore, error) {
	if cloudName == "" || apiKey == "" || apiSecret == "" {
		return &ProofStore{folder: folder}, nil
	}
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("cloudinary config error: %w", err)
	}
	return &ProofStore{cld: cld, folder: folder}, nil
}

// Upload stores file and returns its secure URL
func (s *ProofStore) Upload(ctx context.Context, file io.Reader, filename string) (string, error) {
	if s.cld == nil {
		return "", ErrNotConfigured
	}
	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	resp, err := s.cld.Upload.Upload(ctx, file, uploader.UploadParams{
		Folder: s.folder,
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", filename, err)
	}
	if resp.SecureURL == "" {
		return "", fmt.Errorf("upload %s: no url returned", filename)
	}
	return resp.SecureURL, nil
}
