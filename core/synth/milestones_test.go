package synth

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/huangsam/codetime/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMilestones_Selection(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	commits := []schema.CommitRecord{
		{Hash: "small", Message: "fix typo", Category: schema.BugfixCategory, Impact: schema.LowImpact, Date: base},
		{Hash: "feat", Message: "add login", Category: schema.FeatureCategory, Impact: schema.LowImpact, Date: base.Add(time.Hour)},
		{Hash: "big", Message: "bump deps", Category: schema.ChoreCategory, Impact: schema.MediumImpact, FilesChanged: 11, Date: base.Add(2 * time.Hour)},
		{Hash: "rel", Message: "Release v1.2.0", Category: schema.ChoreCategory, Impact: schema.LowImpact, Date: base.Add(3 * time.Hour)},
		{Hash: "high", Message: "rewrite parser", Category: schema.UnknownCategory, Impact: schema.HighImpact, Date: base.Add(4 * time.Hour)},
		{Hash: "versioning", Message: "fix versioning script", Category: schema.BugfixCategory, Impact: schema.LowImpact, Date: base.Add(5 * time.Hour)},
	}

	milestones := Milestones(commits)
	var hashes []string
	for _, m := range milestones {
		hashes = append(hashes, m.Hash)
	}
	assert.Equal(t, []string{"high", "rel", "big", "feat"}, hashes, "newest first, keyword match is exact-token")

	require.NotNil(t, milestones[0].Date)
	assert.True(t, milestones[0].Date.Equal(base.Add(4*time.Hour)))
}

func TestMilestones_CapAndTitle(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var commits []schema.CommitRecord
	for i := range 30 {
		commits = append(commits, schema.CommitRecord{
			Hash:     fmt.Sprintf("f%02d", i),
			Message:  "feat: " + strings.Repeat("x", 150) + "\n\nbody",
			Category: schema.FeatureCategory,
			Date:     base.Add(time.Duration(i) * time.Minute),
		})
	}
	milestones := Milestones(commits)
	require.Len(t, milestones, MaxMilestones)
	assert.Equal(t, "f29", milestones[0].Hash)
	assert.LessOrEqual(t, len([]rune(milestones[0].Title)), milestoneTitleChars)
	assert.Contains(t, milestones[0].Description, "body")
}

func TestMilestones_Empty(t *testing.T) {
	assert.Empty(t, Milestones(nil))
	assert.NotNil(t, Milestones(nil))
}
