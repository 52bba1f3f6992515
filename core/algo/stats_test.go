package algo

import (
	"fmt"
	"testing"
	"time"

	"github.com/huangsam/codetime/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeStats(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	commits := []schema.CommitRecord{
		{Author: "alice", Date: base.Add(48 * time.Hour), Insertions: 10, Deletions: 2, Category: schema.BugfixCategory},
		{Author: "bob", Date: base, Insertions: 5, Deletions: 5, Category: schema.FeatureCategory},
		{Author: "alice", Date: base.Add(24 * time.Hour), Insertions: 1, Category: schema.BugfixCategory},
	}
	files := []string{"main.go", "util.go", "README.md", "blob.zzqq"}

	stats := ComputeStats(commits, files)
	assert.Equal(t, 3, stats.TotalCommits)
	assert.Equal(t, 4, stats.TotalFiles)
	assert.Equal(t, 2, stats.FileTypes["go"])
	assert.Equal(t, 1, stats.FileTypes["markdown"])
	assert.Equal(t, 1, stats.FileTypes["other"])
	assert.Equal(t, schema.AuthorStats{Commits: 2, Insertions: 11, Deletions: 2}, stats.Authors["alice"])
	assert.Equal(t, 2, stats.Categories[schema.BugfixCategory])
	assert.Equal(t, 16, stats.TotalInsertions)
	assert.Equal(t, 7, stats.TotalDeletions)
	assert.Equal(t, base, stats.DateRange.Start)
	assert.Equal(t, base.Add(48*time.Hour), stats.DateRange.End)
}

func TestComputeStatsEmpty(t *testing.T) {
	stats := ComputeStats(nil, nil)
	assert.Zero(t, stats.TotalCommits)
	assert.NotNil(t, stats.Authors)
	assert.True(t, stats.DateRange.Start.IsZero())
}

func TestBuildVisualization(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	commits := []schema.CommitRecord{
		{Hash: "a1", Author: "alice", Date: base, Message: "feat: search\n\nbody", Category: schema.FeatureCategory, Files: []string{"a.go", "b.go"}, FilesChanged: 2},
		{Hash: "a2", Author: "alice", Date: base, Message: "fix: search", Category: schema.BugfixCategory, Files: []string{"a.go"}},
		{Hash: "b1", Author: "bob", Date: base, Message: "Migrate db", Category: schema.ArchitectureCategory, Files: []string{"db.go"}},
	}

	data := BuildVisualization(commits)
	require.Len(t, data.Timeline, 2)
	assert.Equal(t, "feat: search", data.Timeline[0].Message)
	assert.Equal(t, "b1", data.Timeline[1].Hash)

	require.Len(t, data.Heatmap, 3)
	assert.Equal(t, schema.HeatmapCell{File: "a.go", Changes: 2}, data.Heatmap[0])

	require.Len(t, data.Ownership, 2)
	assert.Equal(t, schema.OwnershipRow{Author: "alice", Commits: 2, FilesTouched: 2}, data.Ownership[0])
	assert.Equal(t, schema.OwnershipRow{Author: "bob", Commits: 1, FilesTouched: 1}, data.Ownership[1])
}

func TestBuildVisualizationHeatmapLimit(t *testing.T) {
	c := schema.CommitRecord{Author: "x"}
	for i := range HeatmapLimit + 20 {
		c.Files = append(c.Files, fmt.Sprintf("f%03d.go", i))
	}
	data := BuildVisualization([]schema.CommitRecord{c})
	assert.Len(t, data.Heatmap, HeatmapLimit)
	assert.Empty(t, data.Timeline)
}
