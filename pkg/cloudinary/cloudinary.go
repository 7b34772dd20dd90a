package cloudinary

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/rs/zerolog"

	"github.com/noah-isme/acompanha-api/pkg/blob"
)

// Config contains credentials required to talk to Cloudinary.
type Config struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

// Store implements blob.Store on top of Cloudinary.
type Store struct {
	client *cloudinary.Cloudinary
	folder string
	logger zerolog.Logger
}

var _ blob.Store = (*Store)(nil)

// New constructs a Cloudinary-backed store.
func New(cfg Config, logger zerolog.Logger) (*Store, error) {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("cloudinary credentials must be provided")
	}

	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary: %w", err)
	}

	return &Store{
		client: cld,
		folder: strings.Trim(cfg.Folder, "/"),
		logger: logger.With().Str("component", "cloudinary").Logger(),
	}, nil
}

// Put uploads the blob. The returned key is the Cloudinary public ID, prefixed with the resource
// type so Delete can address raw files and images alike.
func (s *Store) Put(ctx context.Context, key string, r io.Reader) (blob.Object, error) {
	params := uploader.UploadParams{
		Folder:         s.folder,
		PublicID:       publicID(key),
		ResourceType:   "auto",
		UniqueFilename: api.Bool(false),
		Overwrite:      api.Bool(true),
	}

	result, err := s.client.Upload.Upload(ctx, r, params)
	if err != nil {
		return blob.Object{}, fmt.Errorf("failed to upload asset: %w", err)
	}
	if result.Error.Message != "" {
		return blob.Object{}, fmt.Errorf("failed to upload asset: %s", result.Error.Message)
	}

	s.logger.Info().Str("public_id", result.PublicID).Msg("file uploaded to cloudinary")

	return blob.Object{
		Key:  result.ResourceType + ":" + result.PublicID,
		URL:  result.SecureURL,
		Size: int64(result.Bytes),
	}, nil
}

// Delete destroys the asset behind a key returned by Put.
func (s *Store) Delete(ctx context.Context, key string) error {
	resourceType, id := splitKey(key)
	result, err := s.client.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:     id,
		ResourceType: resourceType,
	})
	if err != nil {
		return fmt.Errorf("failed to delete asset: %w", err)
	}
	if result.Result == "not found" {
		return blob.ErrNotFound
	}
	return nil
}

func splitKey(key string) (string, string) {
	if resourceType, id, ok := strings.Cut(key, ":"); ok {
		return resourceType, id
	}
	return "image", key
}

func publicID(key string) string {
	base := strings.TrimSuffix(key, path.Ext(key))
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '/', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, base)
}
