package avatar

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"courier/internal/auth/models"
	"courier/internal/platform/config"
)

// LocalStore writes avatars to a directory served under PublicBaseURL.
type LocalStore struct {
	dir         string
	publicBase  string
	thumbWidth  int
	thumbHeight int
}

func NewLocalStore(cfg config.AvatarConfig) (*LocalStore, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("avatar dir required")
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create avatar dir: %w", err)
	}
	return &LocalStore{
		dir:         cfg.Dir,
		publicBase:  strings.TrimRight(cfg.PublicBaseURL, "/"),
		thumbWidth:  cfg.ThumbWidth,
		thumbHeight: cfg.ThumbHeight,
	}, nil
}

// Dir is the directory the store writes to.
func (s *LocalStore) Dir() string {
	return s.dir
}

// Upload writes the original and a thumbnail concurrently.
func (s *LocalStore) Upload(ctx context.Context, avatar models.Avatar) (models.AvatarURLs, error) {
	name := uuid.NewString()
	var urls models.AvatarURLs

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		file := name + extension(avatar.ContentType)
		if err := s.write(gctx, file, avatar.Content); err != nil {
			return err
		}
		urls.Origin = s.publicBase + "/" + file
		return nil
	})
	g.Go(func() error {
		thumb, contentType, err := Thumbnail(avatar.Content, s.thumbWidth, s.thumbHeight)
		if err != nil {
			return err
		}
		file := name + "_thumb" + extension(contentType)
		if err := s.write(gctx, file, thumb); err != nil {
			return err
		}
		urls.Thumb = s.publicBase + "/" + file
		return nil
	})
	if err := g.Wait(); err != nil {
		return models.AvatarURLs{}, err
	}
	return urls, nil
}

func (s *LocalStore) write(ctx context.Context, file string, content []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(s.dir, file), content, 0o644); err != nil {
		return fmt.Errorf("write avatar: %w", err)
	}
	return nil
}

func extension(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	default:
		return ""
	}
}
