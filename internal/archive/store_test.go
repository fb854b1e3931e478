// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package archive

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/scholarly/internal/scholar"
	"github.com/pdiddy/scholarly/pkg/types"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(types.ArchiveConfig{Path: filepath.Join(t.TempDir(), "nested", "archive.db")})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	s.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return s
}

func pub(title, url string, cited *scholar.Citation) *scholar.Publication {
	return &scholar.Publication{
		Source:  scholar.SourceScholar,
		Bib:     types.Bib{Title: title, URL: url, Author: "A Author and B Writer"},
		CitedBy: cited,
		BibURL:  "/scholar.bib?q=info:" + title,
	}
}

func TestOpen_EmptyPath(t *testing.T) {
	_, err := Open(types.ArchiveConfig{})
	assert.Error(t, err)
}

func TestSaveAndList(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	withExtra := pub("Second", "https://example.org/2", nil)
	withExtra.Bib.Extra = map[string]string{"journal": "J", "year": "2020"}

	n, err := s.Save(ctx, "deep learning", []*scholar.Publication{
		pub("First", "https://example.org/1", &scholar.Citation{Count: 7, ID: "123"}),
		withExtra,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := s.List(ctx, "deep learning")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "First", got[0].Title)
	assert.Equal(t, "https://example.org/1", got[0].URL)
	assert.Equal(t, "A Author and B Writer", got[0].Author)
	assert.Equal(t, &scholar.Citation{Count: 7, ID: "123"}, got[0].CitedBy)
	assert.Equal(t, "/scholar.bib?q=info:First", got[0].BibURL)
	assert.False(t, got[0].Filled)
	assert.Nil(t, got[0].Extra)
	assert.Equal(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), got[0].FetchedAt)

	assert.Nil(t, got[1].CitedBy)
	assert.Equal(t, map[string]string{"journal": "J", "year": "2020"}, got[1].Extra)
}

func TestSave_ReplacesSameRecord(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	_, err := s.Save(ctx, "q", []*scholar.Publication{pub("T", "u", nil)})
	require.NoError(t, err)
	_, err = s.Save(ctx, "q", []*scholar.Publication{pub("T", "u", &scholar.Citation{Count: 3, ID: "9"})})
	require.NoError(t, err)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := s.List(ctx, "q")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 3, got[0].CitedBy.Count)
}

func TestList_FiltersByQuery(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	_, err := s.Save(ctx, "a", []*scholar.Publication{pub("A1", "", nil), pub("A2", "", nil)})
	require.NoError(t, err)
	_, err = s.Save(ctx, "b", []*scholar.Publication{pub("B1", "", nil), pub("A1", "", nil)})
	require.NoError(t, err)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	b, err := s.List(ctx, "b")
	require.NoError(t, err)
	assert.Len(t, b, 2)

	all, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 4)

	none, err := s.List(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSave_Empty(t *testing.T) {
	s := testStore(t)
	n, err := s.Save(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}
