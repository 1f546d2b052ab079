package service

import (
	"context"
	"fmt"

	"github.com/rahulclufox/EpubViewerKit/internal/bookmark"
	"github.com/rahulclufox/EpubViewerKit/internal/logger"
)

// DuplicateGroup is a set of bookmarks sharing one position. Bookmarks are
// in natural order, so the first is the one position lookups return.
type DuplicateGroup struct {
	Position  bookmark.Position
	Bookmarks []bookmark.Bookmark
}

// Keep returns the bookmark that survives deduplication.
func (g DuplicateGroup) Keep() bookmark.Bookmark {
	return g.Bookmarks[0]
}

// Extra returns the bookmarks deduplication removes.
func (g DuplicateGroup) Extra() []bookmark.Bookmark {
	return g.Bookmarks[1:]
}

// FindDuplicatePositions returns every position held by more than one
// bookmark, ordered by the first occurrence of each position.
func (s *Service) FindDuplicatePositions(ctx context.Context) ([]DuplicateGroup, error) {
	all, err := s.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("find duplicates: %w", err)
	}

	index := make(map[bookmark.Position]int)
	var groups []DuplicateGroup
	for _, b := range all {
		pos := b.Position()
		i, seen := index[pos]
		if !seen {
			index[pos] = len(groups)
			groups = append(groups, DuplicateGroup{Position: pos, Bookmarks: []bookmark.Bookmark{b}})
			continue
		}
		groups[i].Bookmarks = append(groups[i].Bookmarks, b)
	}

	dups := []DuplicateGroup{}
	for _, g := range groups {
		if len(g.Bookmarks) > 1 {
			dups = append(dups, g)
		}
	}
	return dups, nil
}

// RemoveDuplicatePositions keeps the first bookmark of every duplicate
// group and deletes the rest in one transaction. It returns the number of
// bookmarks removed.
func (s *Service) RemoveDuplicatePositions(ctx context.Context) (int, error) {
	groups, err := s.FindDuplicatePositions(ctx)
	if err != nil {
		return 0, err
	}

	var doomed []string
	for _, g := range groups {
		for _, b := range g.Extra() {
			s.log.Info("removing duplicate",
				logger.String("bookmark_id", b.ID),
				logger.String("keeping", g.Keep().ID),
				logger.String("position", g.Position.String()),
			)
			doomed = append(doomed, b.ID)
		}
	}
	if len(doomed) == 0 {
		return 0, nil
	}

	n, err := s.store.DeleteIDs(ctx, doomed)
	if err != nil {
		return 0, fmt.Errorf("remove duplicates: %w", err)
	}
	return n, nil
}
