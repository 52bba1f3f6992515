package synth

import (
	"slices"

	"github.com/huangsam/codetime/core/algo"
	"github.com/huangsam/codetime/internal/contract"
	"github.com/huangsam/codetime/schema"
)

// MaxMilestones caps the milestone list.
const MaxMilestones = 20

const milestoneTitleChars = 100

// milestoneKeywords mark commits that read like turning points.
var milestoneKeywords = map[string]struct{}{
	"release": {}, "released": {}, "version": {}, "launch": {}, "launched": {},
	"initial": {}, "migration": {}, "major": {},
}

// Milestones selects notable commits, newest first. A commit qualifies when
// its impact is high, its category is feature or architecture, it changed more
// than 10 files, or its message mentions a release-like keyword.
func Milestones(commits []schema.CommitRecord) []schema.Milestone {
	milestones := []schema.Milestone{}
	for _, c := range commits {
		if !isMilestone(c) {
			continue
		}
		date := c.Date
		milestones = append(milestones, schema.Milestone{
			Hash:         c.Hash,
			Title:        contract.TruncateText(c.Subject(), milestoneTitleChars),
			Description:  c.Message,
			Category:     c.Category,
			Impact:       c.Impact,
			Author:       c.Author,
			Date:         &date,
			FilesChanged: c.FilesChanged,
		})
	}
	slices.SortStableFunc(milestones, func(a, b schema.Milestone) int {
		return b.Date.Compare(*a.Date)
	})
	if len(milestones) > MaxMilestones {
		milestones = milestones[:MaxMilestones]
	}
	return milestones
}

func isMilestone(c schema.CommitRecord) bool {
	if c.Impact == schema.HighImpact || c.FilesChanged > 10 {
		return true
	}
	if c.Category == schema.FeatureCategory || c.Category == schema.ArchitectureCategory {
		return true
	}
	for _, tok := range algo.MessageTokens(c.Message) {
		if _, ok := milestoneKeywords[tok]; ok {
			return true
		}
	}
	return false
}
