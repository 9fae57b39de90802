package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/foodbridge/foodbridge/internal/database/testutil"
	"github.com/foodbridge/foodbridge/internal/models"
	apperrors "github.com/foodbridge/foodbridge/pkg/errors"
)

func TestTaskServiceCreate(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	dispatcher := newTestDispatcher(t, db)
	svc, err := NewTaskService(db, dispatcher, nil)
	require.NoError(t, err)

	donor := seedUser(t, db, models.UserTypeDonor)
	volunteer := seedUser(t, db, models.UserTypeVolunteer)
	listing := seedListing(t, db, donor, models.ListingAvailable)

	task, err := svc.Create(context.Background(), donor, CreateTaskInput{
		TaskType:          models.TaskDelivery,
		Title:             "Deliver apples",
		Location:          "Downtown",
		ScheduledTime:     time.Now().Add(6 * time.Hour),
		EstimatedDuration: 30,
		Priority:          3,
		ListingID:         listing.ID,
	})
	require.NoError(t, err)
	require.Equal(t, models.TaskPending, task.Status)
	require.Nil(t, task.VolunteerID)

	inbox := notificationsFor(t, db, dispatcher, volunteer.ID)
	require.Len(t, inbox, 1)
	require.Equal(t, models.NotificationTaskUpdate, inbox[0].Type)
}

func TestTaskServiceCreateValidation(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	svc, err := NewTaskService(db, nil, nil)
	require.NoError(t, err)

	donor := seedUser(t, db, models.UserTypeDonor)
	listing := seedListing(t, db, donor, models.ListingAvailable)

	base := CreateTaskInput{
		TaskType:          models.TaskPickup,
		Title:             "Pickup",
		ScheduledTime:     time.Now().Add(time.Hour),
		EstimatedDuration: 20,
		Priority:          1,
		ListingID:         listing.ID,
	}

	cases := []struct {
		name   string
		mutate func(*CreateTaskInput)
	}{
		{"unknown type", func(in *CreateTaskInput) { in.TaskType = "driving" }},
		{"empty title", func(in *CreateTaskInput) { in.Title = "" }},
		{"past schedule", func(in *CreateTaskInput) { in.ScheduledTime = time.Now().Add(-time.Hour) }},
		{"zero duration", func(in *CreateTaskInput) { in.EstimatedDuration = 0 }},
		{"priority too low", func(in *CreateTaskInput) { in.Priority = 0 }},
		{"priority too high", func(in *CreateTaskInput) { in.Priority = 6 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := base
			tc.mutate(&input)
			_, err := svc.Create(context.Background(), donor, input)
			var appErr *apperrors.AppError
			require.ErrorAs(t, err, &appErr)
			require.Equal(t, apperrors.ErrBadRequest.Code, appErr.Code)
		})
	}

	var count int64
	require.NoError(t, db.Model(&models.VolunteerTask{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestTaskServiceCreateAuthorization(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	svc, err := NewTaskService(db, nil, nil)
	require.NoError(t, err)

	donor := seedUser(t, db, models.UserTypeDonor)
	other := seedUser(t, db, models.UserTypeDonor)
	admin := seedUser(t, db, models.UserTypeAdmin)
	listing := seedListing(t, db, donor, models.ListingAvailable)

	input := CreateTaskInput{
		TaskType:          models.TaskPickup,
		Title:             "Pickup",
		ScheduledTime:     time.Now().Add(time.Hour),
		EstimatedDuration: 20,
		Priority:          1,
		ListingID:         listing.ID,
	}

	_, err = svc.Create(context.Background(), other, input)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, apperrors.ErrForbidden.Code, appErr.Code)

	_, err = svc.Create(context.Background(), admin, input)
	require.NoError(t, err)

	input.ListingID = "no-such-listing"
	_, err = svc.Create(context.Background(), admin, input)
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, apperrors.ErrNotFound.Code, appErr.Code)
}

func TestTaskServiceClaimTask(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	dispatcher := newTestDispatcher(t, db)
	svc, err := NewTaskService(db, dispatcher, nil)
	require.NoError(t, err)

	donor := seedUser(t, db, models.UserTypeDonor)
	volunteer := seedUser(t, db, models.UserTypeVolunteer)
	listing := seedListing(t, db, donor, models.ListingAvailable)
	task := seedTask(t, db, listing, models.TaskPending)

	claimed, err := svc.ClaimTask(context.Background(), task.ID, volunteer)
	require.NoError(t, err)
	require.Equal(t, models.TaskAssigned, claimed.Status)
	require.NotNil(t, claimed.VolunteerID)
	require.Equal(t, volunteer.ID, *claimed.VolunteerID)

	inbox := notificationsFor(t, db, dispatcher, donor.ID)
	require.Len(t, inbox, 1)
}

func TestTaskServiceClaimTaskVolunteersOnly(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	svc, err := NewTaskService(db, nil, nil)
	require.NoError(t, err)

	donor := seedUser(t, db, models.UserTypeDonor)
	listing := seedListing(t, db, donor, models.ListingAvailable)
	task := seedTask(t, db, listing, models.TaskPending)

	_, err = svc.ClaimTask(context.Background(), task.ID, donor)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, apperrors.ErrForbidden.Code, appErr.Code)
}

func TestTaskServiceClaimTaskConflictLeavesAssignment(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	svc, err := NewTaskService(db, nil, nil)
	require.NoError(t, err)

	donor := seedUser(t, db, models.UserTypeDonor)
	winner := seedUser(t, db, models.UserTypeVolunteer)
	loser := seedUser(t, db, models.UserTypeVolunteer)
	listing := seedListing(t, db, donor, models.ListingAvailable)
	task := seedTask(t, db, listing, models.TaskPending)

	_, err = svc.ClaimTask(context.Background(), task.ID, winner)
	require.NoError(t, err)

	_, err = svc.ClaimTask(context.Background(), task.ID, loser)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, apperrors.ErrConflict.Code, appErr.Code)

	var stored models.VolunteerTask
	require.NoError(t, db.First(&stored, "id = ?", task.ID).Error)
	require.Equal(t, models.TaskAssigned, stored.Status)
	require.Equal(t, winner.ID, *stored.VolunteerID)
}

func TestTaskServiceReassignmentAdminOnly(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	svc, err := NewTaskService(db, nil, nil)
	require.NoError(t, err)

	donor := seedUser(t, db, models.UserTypeDonor)
	admin := seedUser(t, db, models.UserTypeAdmin)
	assigned := seedUser(t, db, models.UserTypeVolunteer)
	replacement := seedUser(t, db, models.UserTypeVolunteer)
	listing := seedListing(t, db, donor, models.ListingAvailable)
	task := seedTask(t, db, listing, models.TaskPending)

	_, err = svc.ClaimTask(context.Background(), task.ID, assigned)
	require.NoError(t, err)

	// The assigned volunteer cannot hand the task to someone else.
	_, err = svc.Update(context.Background(), task.ID, assigned, UpdateTaskPatch{VolunteerID: &replacement.ID})
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, apperrors.ErrForbidden.Code, appErr.Code)

	// Admin reassignment must name an existing volunteer.
	missing := "no-such-user"
	_, err = svc.Update(context.Background(), task.ID, admin, UpdateTaskPatch{VolunteerID: &missing})
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, apperrors.ErrNotFound.Code, appErr.Code)

	_, err = svc.Update(context.Background(), task.ID, admin, UpdateTaskPatch{VolunteerID: &donor.ID})
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, apperrors.ErrBadRequest.Code, appErr.Code)

	updated, err := svc.Update(context.Background(), task.ID, admin, UpdateTaskPatch{VolunteerID: &replacement.ID})
	require.NoError(t, err)
	require.Equal(t, replacement.ID, *updated.VolunteerID)
}

func TestTaskServiceStatusUpdateByAssignee(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	svc, err := NewTaskService(db, nil, nil)
	require.NoError(t, err)

	donor := seedUser(t, db, models.UserTypeDonor)
	volunteer := seedUser(t, db, models.UserTypeVolunteer)
	listing := seedListing(t, db, donor, models.ListingAvailable)
	task := seedTask(t, db, listing, models.TaskPending)

	_, err = svc.ClaimTask(context.Background(), task.ID, volunteer)
	require.NoError(t, err)

	inProgress := models.TaskInProgress
	updated, err := svc.Update(context.Background(), task.ID, volunteer, UpdateTaskPatch{Status: &inProgress})
	require.NoError(t, err)
	require.Equal(t, models.TaskInProgress, updated.Status)

	completedStatus := models.TaskCompleted
	updated, err = svc.Update(context.Background(), task.ID, volunteer, UpdateTaskPatch{Status: &completedStatus})
	require.NoError(t, err)
	require.Equal(t, models.TaskCompleted, updated.Status)
}

func TestTaskServiceListAvailable(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	svc, err := NewTaskService(db, nil, nil)
	require.NoError(t, err)

	donor := seedUser(t, db, models.UserTypeDonor)
	volunteer := seedUser(t, db, models.UserTypeVolunteer)
	listing := seedListing(t, db, donor, models.ListingAvailable)
	pending := seedTask(t, db, listing, models.TaskPending)
	taken := seedTask(t, db, listing, models.TaskPending)
	_, err = svc.ClaimTask(context.Background(), taken.ID, volunteer)
	require.NoError(t, err)

	overdue := seedTask(t, db, listing, models.TaskPending)
	require.NoError(t, db.Model(&overdue).
		Update("scheduled_time", time.Now().Add(-time.Hour)).Error)

	available, err := svc.ListAvailable(context.Background(), volunteer)
	require.NoError(t, err)
	require.Len(t, available, 1)
	require.Equal(t, pending.ID, available[0].ID)

	_, err = svc.ListAvailable(context.Background(), donor)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, apperrors.ErrForbidden.Code, appErr.Code)
}

func TestTaskServiceListVolunteerVisibility(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	svc, err := NewTaskService(db, nil, nil)
	require.NoError(t, err)

	donor := seedUser(t, db, models.UserTypeDonor)
	mine := seedUser(t, db, models.UserTypeVolunteer)
	other := seedUser(t, db, models.UserTypeVolunteer)
	listing := seedListing(t, db, donor, models.ListingAvailable)

	open := seedTask(t, db, listing, models.TaskPending)
	assignedToMe := seedTask(t, db, listing, models.TaskPending)
	assignedToOther := seedTask(t, db, listing, models.TaskPending)
	_, err = svc.ClaimTask(context.Background(), assignedToMe.ID, mine)
	require.NoError(t, err)
	_, err = svc.ClaimTask(context.Background(), assignedToOther.ID, other)
	require.NoError(t, err)

	visible, err := svc.List(context.Background(), mine, ListTasksInput{})
	require.NoError(t, err)
	ids := make([]string, 0, len(visible))
	for _, task := range visible {
		ids = append(ids, task.ID)
	}
	require.Contains(t, ids, open.ID)
	require.Contains(t, ids, assignedToMe.ID)
	require.NotContains(t, ids, assignedToOther.ID)

	all, err := svc.List(context.Background(), donor, ListTasksInput{})
	require.NoError(t, err)
	require.Len(t, all, 3)
}
