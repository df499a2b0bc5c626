package service

import (
	"bufio"
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/liliang-cn/gmassist/internal/domain"
	"github.com/liliang-cn/gmassist/internal/repository"
)

type countingInvalidator struct{ n int }

func (c *countingInvalidator) Invalidate() { c.n++ }

func newTestStore(t *testing.T) repository.ScriptStore {
	t.Helper()
	db, err := repository.NewDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	store := repository.NewScriptRepository(db)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestAdminService_ScriptLifecycle(t *testing.T) {
	ctx := context.Background()
	inv := &countingInvalidator{}
	svc := NewAdminService(newTestStore(t), inv, "sqlite", zap.NewNop())

	created, err := svc.CreateScript(ctx, &domain.CreateScriptRequest{
		Title:   "Harbor",
		Content: "EXT. HARBOR - NIGHT",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, 1, inv.n)

	got, err := svc.GetScript(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Harbor", got.Title)

	updated, err := svc.UpdateScript(ctx, created.ID, &domain.UpdateScriptRequest{Description: "Smugglers at work"})
	require.NoError(t, err)
	assert.Equal(t, "Harbor", updated.Title)
	assert.Equal(t, "Smugglers at work", updated.Description)
	assert.Equal(t, 2, inv.n)

	require.NoError(t, svc.DeleteScript(ctx, created.ID))
	assert.Equal(t, 3, inv.n)

	_, err = svc.GetScript(ctx, created.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, svc.DeleteScript(ctx, created.ID), domain.ErrNotFound)
	_, err = svc.UpdateScript(ctx, created.ID, &domain.UpdateScriptRequest{Title: "x"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAdminService_ListScriptsPaginates(t *testing.T) {
	ctx := context.Background()
	svc := NewAdminService(newTestStore(t), nil, "sqlite", zap.NewNop())

	for _, title := range []string{"One", "Two", "Three"} {
		_, err := svc.CreateScript(ctx, &domain.CreateScriptRequest{Title: title, Content: title})
		require.NoError(t, err)
	}

	page, err := svc.ListScripts(ctx, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	require.Len(t, page.Scripts, 1)
	assert.Equal(t, "Three", page.Scripts[0].Title)

	empty, err := svc.ListScripts(ctx, 5, 2)
	require.NoError(t, err)
	assert.NotNil(t, empty.Scripts)
	assert.Empty(t, empty.Scripts)

	defaults, err := svc.ListScripts(ctx, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, defaults.Page)
	assert.Equal(t, 20, defaults.PageSize)
	assert.Len(t, defaults.Scripts, 3)
}

func TestAdminService_StatsAndStatus(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	svc := NewAdminService(store, nil, "sqlite", zap.NewNop())

	_, err := repository.SeedSample(ctx, store)
	require.NoError(t, err)

	stats, err := svc.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, &domain.Stats{TotalScripts: 1, StoreDriver: "sqlite"}, stats)

	status := svc.Status(ctx)
	assert.Equal(t, "ok", status.Status)
	assert.Equal(t, "connected", status.Store)
	assert.Equal(t, "test.db", status.Database)
	assert.Equal(t, Version, status.Version)

	require.NoError(t, store.Close())
	assert.Equal(t, "disconnected", svc.Status(ctx).Store)
}

func multipartFile(t *testing.T, filename, content string) *multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req, err := http.NewRequest(http.MethodPost, "/upload", &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(MaxUploadBytes))
	return req.MultipartForm.File["file"][0]
}

func TestIngestService_UploadScript(t *testing.T) {
	ctx := context.Background()
	admin := NewAdminService(newTestStore(t), nil, "sqlite", zap.NewNop())
	ingest := NewIngestService(admin, zap.NewNop())

	text := "# INT. TAVERN - NIGHT\n\nThe fire crackles.\n\nEXT. ROAD - DAY\n\n.THE BRIDGE\n\nSomeone waits.\n"
	script, err := ingest.UploadScript(ctx, multipartFile(t, "act-one.md", text), "", "First act")
	require.NoError(t, err)

	assert.Equal(t, "act-one", script.Title)
	assert.Equal(t, "First act", script.Description)
	assert.Equal(t, strings.TrimSpace(text), script.Content)
	assert.Equal(t, []string{"INT. TAVERN - NIGHT", "EXT. ROAD - DAY", "THE BRIDGE"}, script.SceneDescriptions)

	stored, err := admin.GetScript(ctx, script.ID)
	require.NoError(t, err)
	assert.Equal(t, script.SceneDescriptions, stored.SceneDescriptions)

	named, err := ingest.UploadScript(ctx, multipartFile(t, "notes.txt", "plain notes"), "Campaign Notes", "")
	require.NoError(t, err)
	assert.Equal(t, "Campaign Notes", named.Title)
	assert.Empty(t, named.SceneDescriptions)
}

func TestIngestService_RejectsBadFiles(t *testing.T) {
	ctx := context.Background()
	ingest := NewIngestService(NewAdminService(newTestStore(t), nil, "sqlite", zap.NewNop()), zap.NewNop())

	_, err := ingest.UploadScript(ctx, multipartFile(t, "map.png", "\x89PNG"), "", "")
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	_, err = ingest.UploadScript(ctx, multipartFile(t, "blank.txt", "  \n"), "", "")
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	_, err = ingest.UploadScript(ctx, multipartFile(t, "bad.txt", "\xff\xfe"), "", "")
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestDetectFileType(t *testing.T) {
	assert.Equal(t, FileTypeMD, DetectFileType("a.Markdown"))
	assert.Equal(t, FileTypeTXT, DetectFileType("a.txt"))
	assert.Equal(t, FileTypeFountain, DetectFileType("pilot.fountain"))
	assert.Equal(t, "pdf", DetectFileType("a.pdf"))
	assert.Equal(t, "", DetectFileType("README"))
	assert.False(t, IsSupported("pdf"))
}

func TestExtractSceneHeadings(t *testing.T) {
	text := "## INT. CRYPT - NIGHT\nBones.\n.THE VAULT\n...and then\next. docks - dawn"
	headings, err := ExtractSceneHeadings(text)
	require.NoError(t, err)
	assert.Equal(t, []string{"INT. CRYPT - NIGHT", "THE VAULT", "ext. docks - dawn"}, headings)
}

func TestExtractSceneHeadings_OverlongLine(t *testing.T) {
	text := "INT. CRYPT - NIGHT\n" + strings.Repeat("x", MaxUploadBytes+2) + "\nEXT. DOCKS - DAWN"

	headings, err := ExtractSceneHeadings(text)
	assert.ErrorIs(t, err, bufio.ErrTooLong)
	assert.Nil(t, headings)
}
