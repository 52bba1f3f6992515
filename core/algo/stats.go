package algo

import (
	"cmp"
	"slices"

	"github.com/huangsam/codetime/schema"
)

// HeatmapLimit caps the number of files in the heatmap view.
const HeatmapLimit = 50

// ComputeStats aggregates commits and the HEAD file sample into repository stats.
func ComputeStats(commits []schema.CommitRecord, files []string) schema.Stats {
	stats := schema.Stats{
		TotalCommits: len(commits),
		TotalFiles:   len(files),
		FileTypes:    make(map[string]int),
		Authors:      make(map[string]schema.AuthorStats),
		Categories:   make(map[schema.Category]int),
	}

	for _, f := range files {
		stats.FileTypes[FileType(f)]++
	}

	for i, c := range commits {
		a := stats.Authors[c.Author]
		a.Commits++
		a.Insertions += c.Insertions
		a.Deletions += c.Deletions
		stats.Authors[c.Author] = a

		stats.Categories[c.Category]++
		stats.TotalInsertions += c.Insertions
		stats.TotalDeletions += c.Deletions

		if i == 0 || c.Date.Before(stats.DateRange.Start) {
			stats.DateRange.Start = c.Date
		}
		if i == 0 || c.Date.After(stats.DateRange.End) {
			stats.DateRange.End = c.Date
		}
	}
	return stats
}

// BuildVisualization derives the timeline, heatmap and ownership views.
func BuildVisualization(commits []schema.CommitRecord) schema.VisualizationData {
	data := schema.VisualizationData{
		Timeline:  []schema.TimelineEvent{},
		Heatmap:   []schema.HeatmapCell{},
		Ownership: []schema.OwnershipRow{},
	}

	fileChanges := make(map[string]int)
	type owner struct {
		commits int
		files   map[string]struct{}
	}
	owners := make(map[string]*owner)

	for _, c := range commits {
		if c.Category == schema.ArchitectureCategory || c.Category == schema.FeatureCategory {
			data.Timeline = append(data.Timeline, schema.TimelineEvent{
				Hash:         c.Hash,
				Date:         c.Date,
				Message:      c.Subject(),
				Author:       c.Author,
				Category:     c.Category,
				FilesChanged: c.FilesChanged,
			})
		}
		o, ok := owners[c.Author]
		if !ok {
			o = &owner{files: make(map[string]struct{})}
			owners[c.Author] = o
		}
		o.commits++
		for _, f := range c.Files {
			fileChanges[f]++
			o.files[f] = struct{}{}
		}
	}

	for f, n := range fileChanges {
		data.Heatmap = append(data.Heatmap, schema.HeatmapCell{File: f, Changes: n})
	}
	slices.SortFunc(data.Heatmap, func(a, b schema.HeatmapCell) int {
		if a.Changes != b.Changes {
			return b.Changes - a.Changes
		}
		return cmp.Compare(a.File, b.File)
	})
	if len(data.Heatmap) > HeatmapLimit {
		data.Heatmap = data.Heatmap[:HeatmapLimit]
	}

	for name, o := range owners {
		data.Ownership = append(data.Ownership, schema.OwnershipRow{Author: name, Commits: o.commits, FilesTouched: len(o.files)})
	}
	slices.SortFunc(data.Ownership, func(a, b schema.OwnershipRow) int {
		if a.Commits != b.Commits {
			return b.Commits - a.Commits
		}
		return cmp.Compare(a.Author, b.Author)
	})
	return data
}
