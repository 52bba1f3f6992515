package schema

import "time"

// TimelineEvent is one architecture or feature commit plotted on the history timeline.
type TimelineEvent struct {
	Hash         string    `json:"hash"`
	Date         time.Time `json:"date"`
	Message      string    `json:"message"`
	Author       string    `json:"author"`
	Category     Category  `json:"category"`
	FilesChanged int       `json:"files_changed"`
}

// HeatmapCell counts how often a file was touched.
type HeatmapCell struct {
	File    string `json:"file"`
	Changes int    `json:"changes"`
}

// OwnershipRow summarizes one author's footprint.
type OwnershipRow struct {
	Author       string `json:"author"`
	Commits      int    `json:"commits"`
	FilesTouched int    `json:"files_touched"`
}

// VisualizationData backs the timeline, heatmap and ownership views.
type VisualizationData struct {
	Timeline  []TimelineEvent `json:"timeline"`
	Heatmap   []HeatmapCell   `json:"heatmap"`
	Ownership []OwnershipRow  `json:"ownership"`
}
