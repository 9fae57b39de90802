package matching

import "github.com/foodbridge/foodbridge/internal/models"

const (
	maxVolunteerMatches = 5
	maxRecipientMatches = 10
	maxTaskSuggestions  = 10
)

// RecipientProfile carries the attributes used to rank listings for a user.
type RecipientProfile struct {
	UserID   string
	Location string
	UserType models.UserType
}

// Optimizer ranks volunteers for tasks, listings for recipients, and tasks for
// volunteers. Implementations must be deterministic for a given input and may
// return an empty or unfiltered result.
type Optimizer interface {
	MatchVolunteers(task models.VolunteerTask, candidates []models.User) []models.User
	MatchRecipients(profile RecipientProfile, listings []models.Listing) []models.Listing
	OptimizeVolunteerTasks(location string, tasks []models.VolunteerTask) []models.VolunteerTask
}

// StaticOptimizer is the shipped ranking strategy: every candidate scores
// equally, so input order is preserved and the result is truncated to the
// per-operation cap. Real scoring criteria are a product placeholder.
type StaticOptimizer struct{}

// NewStaticOptimizer constructs the default optimizer.
func NewStaticOptimizer() *StaticOptimizer {
	return &StaticOptimizer{}
}

// MatchVolunteers returns up to five candidates for the task, in input order.
func (o *StaticOptimizer) MatchVolunteers(task models.VolunteerTask, candidates []models.User) []models.User {
	return truncate(candidates, maxVolunteerMatches)
}

// MatchRecipients returns up to ten listings for the profile, in input order.
func (o *StaticOptimizer) MatchRecipients(profile RecipientProfile, listings []models.Listing) []models.Listing {
	return truncate(listings, maxRecipientMatches)
}

// OptimizeVolunteerTasks returns up to ten task suggestions, in input order.
func (o *StaticOptimizer) OptimizeVolunteerTasks(location string, tasks []models.VolunteerTask) []models.VolunteerTask {
	return truncate(tasks, maxTaskSuggestions)
}

func truncate[T any](items []T, limit int) []T {
	if len(items) <= limit {
		return items
	}
	out := make([]T, limit)
	copy(out, items[:limit])
	return out
}
