package frontdeskService

import (
	"context"
	"testing"

	"frontdesk/internal/api/frontdesk"
	"frontdesk/internal/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddKnowledge(t *testing.T) {
	env := newTestEnv(t)

	entry, err := env.knowledge.AddKnowledge(context.Background(), AddKnowledge{
		Question: "  Do you have wheelchair access?  ",
		Answer:   "Yes, the main entrance has a ramp.",
		Category: "Accessibility",
		Keywords: []string{"ramp", "accessible"},
	})
	require.NoError(t, err)

	assert.Len(t, entry.ID, 26)
	assert.Equal(t, "Do you have wheelchair access?", entry.Question)
	assert.Equal(t, entity.ProvenanceManual, entry.Provenance)
	assert.True(t, entry.IsActive)
	assert.Equal(t, int64(0), entry.UsageCount)
	assert.Subset(t, entry.Keywords, []string{"wheelchair", "access", "main", "entrance", "ramp", "accessible"})
	assert.Equal(t, entry, env.repo.entry(entry.ID))
}

func TestAddKnowledgeValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.knowledge.AddKnowledge(ctx, AddKnowledge{Question: "Anything?", Answer: "   "})
	assert.ErrorIs(t, err, frontdesk.ErrMissingFields)

	_, err = env.knowledge.AddKnowledge(ctx, AddKnowledge{Question: "Anything?", Answer: "Yes.", Provenance: "GUESSED"})
	assert.Error(t, err)

	assert.Empty(t, env.repo.entries())
}

func TestSeedInitialKnowledgeOnlyOnce(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)

	n, err := env.knowledge.SeedInitialKnowledge(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	entries := env.repo.entries()
	require.Len(t, entries, 4)
	for _, e := range entries {
		assert.Equal(t, entity.ProvenanceInitial, e.Provenance)
		assert.NotEmpty(t, e.Category)
	}
	assert.Contains(t, env.entryByQuestion("What are your business hours?").Keywords, "schedule")
}

func TestListLearnedAnswers(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)
	ctx := context.Background()

	all, err := env.knowledge.ListLearnedAnswers(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	two, err := env.knowledge.ListLearnedAnswers(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, two, 2)
}

func TestSetActiveUnknownEntry(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.knowledge.SetActive(context.Background(), "01HZZZZZZZZZZZZZZZZZZZZZZZ", false)
	assert.ErrorIs(t, err, frontdesk.ErrKnowledgeNotFound)
}
