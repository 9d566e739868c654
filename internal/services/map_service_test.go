package services

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"mime/multipart"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/terralotes/terralotes-api/internal/models"
	"github.com/terralotes/terralotes-api/internal/repository"
)

// Mock MapRepository
type mockMapRepo struct {
	repository.MapRepository
	mockFindByID func(ctx context.Context, id uint) (*models.PropertyMap, error)
	mockUpdate   func(ctx context.Context, m *models.PropertyMap) error
}

func (m *mockMapRepo) FindByID(ctx context.Context, id uint) (*models.PropertyMap, error) {
	return m.mockFindByID(ctx, id)
}

func (m *mockMapRepo) Update(ctx context.Context, pm *models.PropertyMap) error {
	if m.mockUpdate != nil {
		return m.mockUpdate(ctx, pm)
	}
	return nil
}

// fakeUpload adapts an in-memory buffer to the multipart.File interface
type fakeUpload struct {
	*bytes.Reader
}

func (f *fakeUpload) Close() error { return nil }

func pngUpload(t *testing.T, width, height int) (multipart.File, *multipart.FileHeader) {
	t.Helper()
	var buf bytes.Buffer
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encoding fixture image: %v", err)
	}
	return &fakeUpload{bytes.NewReader(buf.Bytes())},
		&multipart.FileHeader{Filename: "plano.png", Size: int64(buf.Len())}
}

func TestMapService_Update_KeepsImageWhenNotResent(t *testing.T) {
	imagePath := "/uploads/maps/abc.png"
	thumbPath := "/uploads/maps/abc_thumb.png"
	repo := &mockMapRepo{
		mockFindByID: func(ctx context.Context, id uint) (*models.PropertyMap, error) {
			return &models.PropertyMap{
				ID:        id,
				Name:      "Residencial Norte",
				GUID:      "guid-1",
				ImagePath: &imagePath,
				ThumbPath: &thumbPath,
				Width:     1920,
				Height:    1080,
			}, nil
		},
	}
	service := NewMapService(repo, nil, NewAuditService(nil))

	m := &models.PropertyMap{ID: 1, Name: "Residencial Norte II"}
	err := service.Update(context.Background(), adminUser(), m)

	assert.NoError(t, err)
	assert.Equal(t, "Residencial Norte II", m.Name)
	if assert.NotNil(t, m.ImagePath) {
		assert.Equal(t, imagePath, *m.ImagePath)
	}
	if assert.NotNil(t, m.ThumbPath) {
		assert.Equal(t, thumbPath, *m.ThumbPath)
	}
	assert.Equal(t, 1920, m.Width)
	assert.Equal(t, 1080, m.Height)
}

func TestMapService_AttachImage_BindsRasterPaths(t *testing.T) {
	var updated *models.PropertyMap
	repo := &mockMapRepo{
		mockFindByID: func(ctx context.Context, id uint) (*models.PropertyMap, error) {
			return &models.PropertyMap{ID: id, Name: "Residencial Norte", GUID: "guid-1"}, nil
		},
		mockUpdate: func(ctx context.Context, m *models.PropertyMap) error {
			updated = m
			return nil
		},
	}
	service := NewMapService(repo, NewImageService(t.TempDir()), NewAuditService(nil))

	file, header := pngUpload(t, 64, 48)
	m, err := service.AttachImage(context.Background(), adminUser(), 1, file, header)

	assert.NoError(t, err)
	if assert.NotNil(t, m.ImagePath) {
		assert.True(t, strings.HasPrefix(*m.ImagePath, "/uploads/maps/"))
	}
	if assert.NotNil(t, m.ThumbPath) {
		assert.True(t, strings.Contains(*m.ThumbPath, "_thumb"))
	}
	assert.Equal(t, 64, m.Width)
	assert.Equal(t, 48, m.Height)
	assert.Same(t, m, updated)
}
