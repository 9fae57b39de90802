package matching

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/foodbridge/foodbridge/internal/models"
)

func TestMatchVolunteersTruncatesDeterministically(t *testing.T) {
	opt := NewStaticOptimizer()

	candidates := make([]models.User, 8)
	for i := range candidates {
		candidates[i] = models.User{Username: string(rune('a' + i))}
	}

	first := opt.MatchVolunteers(models.VolunteerTask{}, candidates)
	second := opt.MatchVolunteers(models.VolunteerTask{}, candidates)

	require.Len(t, first, 5)
	require.Equal(t, first, second)
	require.Equal(t, candidates[0].Username, first[0].Username)
}

func TestMatchRecipientsKeepsShortInput(t *testing.T) {
	opt := NewStaticOptimizer()

	listings := []models.Listing{{Title: "apples"}, {Title: "bread"}}
	ranked := opt.MatchRecipients(RecipientProfile{Location: "downtown"}, listings)

	require.Len(t, ranked, 2)
	require.Equal(t, "apples", ranked[0].Title)
}

func TestOptimizeVolunteerTasksEmptyInput(t *testing.T) {
	opt := NewStaticOptimizer()
	require.Empty(t, opt.OptimizeVolunteerTasks("anywhere", nil))
}
