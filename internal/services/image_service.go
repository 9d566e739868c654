package services

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

// ImageService stores map raster images and derives their thumbnails
type ImageService struct {
	uploadDir string
}

func NewImageService(uploadDir string) *ImageService {
	if _, err := os.Stat(uploadDir); os.IsNotExist(err) {
		_ = os.MkdirAll(uploadDir, 0755)
	}
	return &ImageService{
		uploadDir: uploadDir,
	}
}

// ProcessAndSaveMapImage saves the uploaded map raster and a bounded
// thumbnail for listings. Returns the relative paths plus the raster's
// pixel dimensions so the map editor can scale lot geometry.
func (s *ImageService) ProcessAndSaveMapImage(file multipart.File, header *multipart.FileHeader) (originalPath, thumbnailPath string, width, height int, err error) {
	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext != ".jpg" && ext != ".jpeg" && ext != ".png" {
		return "", "", 0, 0, NewValidationError("image", "formato de imagen no soportado (solo JPG/PNG)")
	}

	filename := uuid.New().String()
	originalFilename := filename + ext
	thumbFilename := filename + "_thumb" + ext

	originalRelPath := "/uploads/maps/" + originalFilename
	thumbRelPath := "/uploads/maps/" + thumbFilename

	img, _, err := image.Decode(file)
	if err != nil {
		return "", "", 0, 0, fmt.Errorf("error al decodificar imagen: %w", err)
	}
	bounds := img.Bounds()
	width, height = bounds.Dx(), bounds.Dy()

	// Copy the original stream untouched so the editor works on full quality
	if _, err := file.Seek(0, 0); err != nil {
		return "", "", 0, 0, fmt.Errorf("error al leer archivo: %w", err)
	}

	if err := os.MkdirAll(filepath.Join(s.uploadDir, "maps"), 0755); err != nil {
		return "", "", 0, 0, fmt.Errorf("error al crear directorio: %w", err)
	}

	outOriginalPath := filepath.Join(s.uploadDir, "maps", originalFilename)
	outOriginal, err := os.Create(outOriginalPath)
	if err != nil {
		return "", "", 0, 0, fmt.Errorf("error al crear archivo: %w", err)
	}
	defer outOriginal.Close()

	if _, err := io.Copy(outOriginal, file); err != nil {
		return "", "", 0, 0, fmt.Errorf("error al guardar imagen original: %w", err)
	}

	// Map rasters are wide; Fit keeps the aspect ratio for list previews
	thumbImg := imaging.Fit(img, 480, 480, imaging.Lanczos)

	outThumbPath := filepath.Join(s.uploadDir, "maps", thumbFilename)
	outThumb, err := os.Create(outThumbPath)
	if err != nil {
		return "", "", 0, 0, fmt.Errorf("error al crear thumbnail: %w", err)
	}
	defer outThumb.Close()

	if ext == ".png" {
		err = png.Encode(outThumb, thumbImg)
	} else {
		err = jpeg.Encode(outThumb, thumbImg, &jpeg.Options{Quality: 85})
	}
	if err != nil {
		return "", "", 0, 0, fmt.Errorf("error al guardar thumbnail: %w", err)
	}

	return originalRelPath, thumbRelPath, width, height, nil
}
