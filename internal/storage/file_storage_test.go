package storage_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/travel-insight/backend/internal/dataset"
	"github.com/travel-insight/backend/internal/storage"
)

func TestCSVStorage_SaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "featured_travel.csv")

	cs, err := storage.NewCSVStorage(path)
	require.NoError(t, err)
	defer cs.Close()
	assert.Equal(t, path, cs.Path())

	records := []dataset.Record{
		{
			Title: "厦门三日游, 鼓浪屿", Author: "小明", People: "情侣", Theme: "沙滩 美食",
			Cost: 1500, HasCost: true, Views: 34000, Likes: 12, Comments: 3,
			Destination: "厦门", Itinerary: "鼓浪屿 > 曾厝垵", Link: "https://travel.qunar.com/youji/1",
			DepartDate: "2024-05-01", Days: 3, Month: 5,
		},
		{Title: "北京", People: "家庭", Theme: dataset.Placeholder, DepartDate: "2023-10-01", Days: 4},
	}
	require.NoError(t, cs.Save(records))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(raw, []byte("\xef\xbb\xbf")), "file starts with a BOM")

	loaded, _, err := dataset.Load(path)
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	got := loaded[0]
	assert.Equal(t, "厦门三日游, 鼓浪屿", got.Title)
	assert.Equal(t, "小明", got.Author)
	assert.Equal(t, 1500.0, got.Cost)
	assert.True(t, got.HasCost)
	assert.Equal(t, int64(34000), got.Views)
	assert.Equal(t, "鼓浪屿 > 曾厝垵", got.Itinerary)
	assert.Equal(t, 3, got.Days)
	assert.Equal(t, 5, got.Month)
	assert.Equal(t, "厦门三日游, 鼓浪屿 情侣 沙滩 美食", got.Text)

	assert.False(t, loaded[1].HasCost)
	assert.Equal(t, "北京 家庭", loaded[1].Text)
}

func TestCSVStorage_SaveReplacesContents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "travel.csv")
	cs, err := storage.NewCSVStorage(path)
	require.NoError(t, err)

	require.NoError(t, cs.Save([]dataset.Record{{Title: "a"}, {Title: "b"}}))
	require.NoError(t, cs.Save([]dataset.Record{{Title: "c"}}))

	loaded, _, err := dataset.Load(path)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "c", loaded[0].Title)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files are left behind")
}
