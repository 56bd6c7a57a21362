package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func occ(raw string, label EntityLabel, times int) []EntityOccurrence {
	out := make([]EntityOccurrence, 0, times)
	for i := 0; i < times; i++ {
		out = append(out, EntityOccurrence{
			Normalized: Normalize(raw),
			Raw:        raw,
			Label:      label,
		})
	}
	return out
}

func TestClusterer_Cluster(t *testing.T) {
	c := NewClusterer(0.82)

	t.Run("empty input", func(t *testing.T) {
		assert.Nil(t, c.Cluster(nil))
	})

	t.Run("merges close variants", func(t *testing.T) {
		var occs []EntityOccurrence
		occs = append(occs, occ("John Snow", LabelCharacter, 5)...)
		occs = append(occs, occ("Jon Snow", LabelCharacter, 2)...)
		occs = append(occs, occ("Winterfell", LabelPlace, 3)...)

		clusters := c.Cluster(occs)
		require.Len(t, clusters, 2)

		var person EntityInfo
		for _, cl := range clusters {
			if cl.Label == LabelCharacter {
				person = cl
			}
		}
		assert.Equal(t, "John Snow", person.CanonicalForm)
		assert.ElementsMatch(t, []string{"John Snow", "Jon Snow"}, person.Variations)
		assert.Equal(t, 7, person.Frequency)
	})

	t.Run("canonical prefers most frequent variant", func(t *testing.T) {
		var occs []EntityOccurrence
		occs = append(occs, occ("Jon Snow", LabelCharacter, 4)...)
		occs = append(occs, occ("John Snow", LabelCharacter, 1)...)

		clusters := c.Cluster(occs)
		require.Len(t, clusters, 1)
		assert.Equal(t, "Jon Snow", clusters[0].CanonicalForm)
	})

	t.Run("frequency tie prefers shorter then lexicographic", func(t *testing.T) {
		var occs []EntityOccurrence
		occs = append(occs, occ("Jon Snow", LabelCharacter, 2)...)
		occs = append(occs, occ("John Snow", LabelCharacter, 2)...)

		clusters := c.Cluster(occs)
		require.Len(t, clusters, 1)
		assert.Equal(t, "Jon Snow", clusters[0].CanonicalForm)
	})

	t.Run("distinct entities stay separate", func(t *testing.T) {
		var occs []EntityOccurrence
		occs = append(occs, occ("Jon Snow", LabelCharacter, 2)...)
		occs = append(occs, occ("Arya Stark", LabelCharacter, 2)...)

		clusters := c.Cluster(occs)
		assert.Len(t, clusters, 2)
	})

	t.Run("deterministic across input orderings", func(t *testing.T) {
		forward := []EntityOccurrence{
			{Normalized: "elder li", Raw: "Elder Li", Label: LabelCharacter},
			{Normalized: "elder lee", Raw: "Elder Lee", Label: LabelCharacter},
			{Normalized: "azure city", Raw: "Azure City", Label: LabelPlace},
		}
		backward := []EntityOccurrence{forward[2], forward[1], forward[0]}

		a := c.Cluster(forward)
		b := c.Cluster(backward)
		require.Equal(t, len(a), len(b))
		for i := range a {
			assert.Equal(t, a[i].CanonicalForm, b[i].CanonicalForm)
			assert.Equal(t, a[i].Variations, b[i].Variations)
			assert.Equal(t, a[i].Frequency, b[i].Frequency)
		}
	})

	t.Run("variations sorted", func(t *testing.T) {
		var occs []EntityOccurrence
		occs = append(occs, occ("John Snow", LabelCharacter, 1)...)
		occs = append(occs, occ("Jon Snow", LabelCharacter, 1)...)

		clusters := c.Cluster(occs)
		require.Len(t, clusters, 1)
		assert.Equal(t, []string{"John Snow", "Jon Snow"}, clusters[0].Variations)
	})
}

func TestNewClusterer_DefaultThreshold(t *testing.T) {
	assert.Equal(t, 0.82, NewClusterer(0).threshold)
	assert.Equal(t, 0.82, NewClusterer(1.5).threshold)
	assert.Equal(t, 0.9, NewClusterer(0.9).threshold)
}
