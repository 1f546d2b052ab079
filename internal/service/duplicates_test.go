package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rahulclufox/EpubViewerKit/internal/bookmark"
)

func TestFindDuplicatePositions_None(t *testing.T) {
	f := newFixture(t)

	f.create(t, pos("kapalam", 1, 0, 0), nil)
	f.create(t, pos("kapalam", 2, 0, 0), nil)

	groups, err := f.svc.FindDuplicatePositions(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, groups)
	assert.Empty(t, groups)
}

func TestFindDuplicatePositions_Groups(t *testing.T) {
	f := newFixture(t)

	a1 := f.create(t, pos("kapalam", 5, 10, 20), nil)
	f.create(t, pos("kapalam", 6, 0, 0), nil)
	b1 := f.create(t, pos("randamoozham", 1, 0, 0), nil)
	a2 := f.create(t, pos("kapalam", 5, 10, 20), nil)
	b2 := f.create(t, pos("randamoozham", 1, 0, 0), nil)
	a3 := f.create(t, pos("kapalam", 5, 10, 20), nil)

	groups, err := f.svc.FindDuplicatePositions(context.Background())
	require.NoError(t, err)
	require.Len(t, groups, 2)

	assert.Equal(t, a1.Position(), groups[0].Position)
	assert.Equal(t, []string{a1.ID, a2.ID, a3.ID}, idList(groups[0].Bookmarks))
	assert.Equal(t, a1.ID, groups[0].Keep().ID)
	assert.Equal(t, []string{a2.ID, a3.ID}, idList(groups[0].Extra()))

	assert.Equal(t, []string{b1.ID, b2.ID}, idList(groups[1].Bookmarks))
}

func TestRemoveDuplicatePositions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := pos("kapalam", 5, 10, 20)

	keep := f.create(t, p, bookmark.Name("keep"))
	f.create(t, p, nil)
	f.create(t, p, nil)
	other := f.create(t, pos("kapalam", 6, 0, 0), nil)

	n, err := f.svc.RemoveDuplicatePositions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	all, err := f.svc.ListAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{keep.ID, other.ID}, idList(all))

	assert.Len(t, f.logs.FilterMessage("removing duplicate").All(), 2)

	n, err = f.svc.RemoveDuplicatePositions(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRemoveDuplicatePositions_QueryFailure(t *testing.T) {
	boom := errors.New("boom")
	svc := New(failingStore{err: boom})

	_, err := svc.RemoveDuplicatePositions(context.Background())
	assert.ErrorIs(t, err, boom)
}
