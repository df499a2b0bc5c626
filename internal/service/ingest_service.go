package service

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/liliang-cn/gmassist/internal/domain"
)

// MaxUploadBytes bounds an imported script file
const MaxUploadBytes = 2 << 20

// FileType constants
const (
	FileTypeTXT      = "txt"
	FileTypeMD       = "md"
	FileTypeFountain = "fountain"
)

// DetectFileType detects file type from filename
func DetectFileType(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".md", ".markdown":
		return FileTypeMD
	case ".txt", ".text":
		return FileTypeTXT
	case ".fountain", ".spmd":
		return FileTypeFountain
	case "":
		return ""
	default:
		return ext[1:]
	}
}

// IsSupported checks if file type is supported
func IsSupported(fileType string) bool {
	switch fileType {
	case FileTypeTXT, FileTypeMD, FileTypeFountain:
		return true
	}
	return false
}

// IngestService imports script files uploaded through the admin API
type IngestService struct {
	admin  *AdminService
	logger *zap.Logger
}

// NewIngestService creates a new ingest service
func NewIngestService(admin *AdminService, logger *zap.Logger) *IngestService {
	return &IngestService{admin: admin, logger: logger}
}

// UploadScript stores an uploaded text script. The title defaults to the
// file name without extension; scene headings become scene descriptions.
func (s *IngestService) UploadScript(ctx context.Context, file *multipart.FileHeader, title, description string) (*domain.Script, error) {
	fileType := DetectFileType(file.Filename)
	if !IsSupported(fileType) {
		return nil, fmt.Errorf("%w: unsupported file type %q", domain.ErrInvalidRequest, fileType)
	}
	if file.Size > MaxUploadBytes {
		return nil, fmt.Errorf("%w: file larger than %d bytes", domain.ErrInvalidRequest, MaxUploadBytes)
	}

	src, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	raw, err := io.ReadAll(io.LimitReader(src, MaxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read uploaded file: %w", err)
	}
	if len(raw) > MaxUploadBytes {
		return nil, fmt.Errorf("%w: file larger than %d bytes", domain.ErrInvalidRequest, MaxUploadBytes)
	}
	if !utf8.Valid(raw) {
		return nil, fmt.Errorf("%w: file is not valid UTF-8 text", domain.ErrInvalidRequest)
	}

	content := strings.TrimSpace(string(raw))
	if content == "" {
		return nil, fmt.Errorf("%w: file is empty", domain.ErrInvalidRequest)
	}

	if title == "" {
		title = strings.TrimSuffix(filepath.Base(file.Filename), filepath.Ext(file.Filename))
	}

	headings, err := ExtractSceneHeadings(content)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
	}

	script, err := s.admin.CreateScript(ctx, &domain.CreateScriptRequest{
		Title:             title,
		Description:       description,
		Content:           content,
		SceneDescriptions: headings,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("script imported",
		zap.String("id", script.ID),
		zap.String("filename", file.Filename),
		zap.Int("scenes", len(script.SceneDescriptions)),
	)
	return script, nil
}

var sceneHeadingPrefixes = []string{"INT.", "EXT.", "INT/EXT.", "I/E.", "EST."}

// ExtractSceneHeadings returns the screenplay scene headings (sluglines) in
// text, in order. Markdown heading markers are ignored. Lines longer than
// MaxUploadBytes are reported as an error.
func ExtractSceneHeadings(text string) ([]string, error) {
	var headings []string
	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), MaxUploadBytes+1)
	for scanner.Scan() {
		line := strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(scanner.Text()), "#"))
		upper := strings.ToUpper(line)
		for _, prefix := range sceneHeadingPrefixes {
			if strings.HasPrefix(upper, prefix+" ") {
				headings = append(headings, line)
				break
			}
		}
		// fountain forces a heading with a leading dot
		if len(line) > 1 && line[0] == '.' && line[1] != '.' {
			headings = append(headings, strings.TrimSpace(line[1:]))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan scene headings: %w", err)
	}
	return headings, nil
}
