package cache

import (
	"context"
	"testing"

	"Musio/model"
	"Musio/repository"
)

// countingTracks counts ListAll calls; other methods are unused.
type countingTracks struct {
	repository.TrackRepository
	tracks  []model.Track
	lists   int
	created int
}

func (c *countingTracks) ListAll(context.Context) ([]model.Track, error) {
	c.lists++
	return c.tracks, nil
}

func (c *countingTracks) Create(_ context.Context, t *model.Track) error {
	c.created++
	c.tracks = append(c.tracks, *t)
	return nil
}

func TestCachedTracksWithoutRedisPassesThrough(t *testing.T) {
	repo := &countingTracks{tracks: []model.Track{{ID: "a"}}}
	c := NewCachedTracks(repo, nil, 0)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		tracks, err := c.ListAll(ctx)
		if err != nil || len(tracks) != 1 {
			t.Fatalf("ListAll() = %v, %v", tracks, err)
		}
	}
	if repo.lists != 2 {
		t.Errorf("repository ListAll called %d times, want 2", repo.lists)
	}

	if err := c.Create(ctx, &model.Track{ID: "b"}); err != nil {
		t.Fatal(err)
	}
	if tracks, _ := c.ListAll(ctx); len(tracks) != 2 {
		t.Errorf("after create got %d tracks", len(tracks))
	}
}

func TestDecodeCatalog(t *testing.T) {
	tracks, err := decodeCatalog([]byte(`[{"id":"a","title":"A","playCount":3}]`))
	if err != nil || len(tracks) != 1 || tracks[0].PlayCount != 3 {
		t.Errorf("decodeCatalog() = %+v, %v", tracks, err)
	}
	if tracks, err := decodeCatalog([]byte(`null`)); err != nil || tracks == nil {
		t.Errorf("null snapshot = %v, %v", tracks, err)
	}
	if _, err := decodeCatalog([]byte(`[{`)); err == nil {
		t.Error("expected error for corrupt snapshot")
	}
}
