package data

import (
	"testing"

	"github.com/stretchr/testify/require"

	"homologador/internal/core"
)

func strPtr(s string) *string { return &s }

func TestHomologationCreateAndGet(t *testing.T) {
	m := newTestManager(t)
	userID := createTestUser(t, m, "alice")
	repo := NewHomologationRepo(m)

	id, err := repo.Create(&core.Homologation{
		RealName:           "Sistema Contable",
		LogicalName:        strPtr("siscon"),
		KBURL:              strPtr("https://kb.example.com/siscon"),
		KBSync:             true,
		HomologationDate:   strPtr("2026-01-15"),
		RepositoryLocation: strPtr(core.LocationAESA),
		Status:             core.StatusApproved,
		Details:            strPtr("first release"),
		CreatedBy:          userID,
	})
	require.NoError(t, err)
	require.Positive(t, id)

	h, err := repo.GetByID(id)
	require.NoError(t, err)
	require.NotNil(t, h)
	require.Equal(t, "Sistema Contable", h.RealName)
	require.Equal(t, "siscon", *h.LogicalName)
	require.True(t, h.KBSync)
	require.Equal(t, "2026-01-15", *h.HomologationDate)
	require.Equal(t, core.LocationAESA, *h.RepositoryLocation)
	require.Equal(t, core.StatusApproved, h.Status)
	require.Equal(t, userID, h.CreatedBy)
	require.Equal(t, "alice", h.CreatorUsername)
	require.False(t, h.CreatedAt.IsZero())
}

func TestHomologationGetByIDMissing(t *testing.T) {
	m := newTestManager(t)
	repo := NewHomologationRepo(m)

	h, err := repo.GetByID(9999)
	require.NoError(t, err)
	require.Nil(t, h)
}

func TestHomologationCreateRejectsEmptyRealName(t *testing.T) {
	m := newTestManager(t)
	userID := createTestUser(t, m, "alice")
	repo := NewHomologationRepo(m)

	_, err := repo.Create(&core.Homologation{RealName: "", CreatedBy: userID})
	require.ErrorIs(t, err, core.ErrValidation)

	_, err = repo.Create(&core.Homologation{RealName: "   ", CreatedBy: userID})
	require.ErrorIs(t, err, core.ErrValidation)

	// Nothing reached storage.
	all, err := repo.GetAll()
	require.NoError(t, err)
	require.Empty(t, all)
}

func TestHomologationCreateRejectsOverlongRealName(t *testing.T) {
	m := newTestManager(t)
	userID := createTestUser(t, m, "alice")
	repo := NewHomologationRepo(m)

	long := make([]byte, core.MaxRealNameLen+1)
	for i := range long {
		long[i] = 'a'
	}
	_, err := repo.Create(&core.Homologation{RealName: string(long), CreatedBy: userID})
	require.ErrorIs(t, err, core.ErrValidation)
}

func TestHomologationCreateRejectsUnknownStatus(t *testing.T) {
	m := newTestManager(t)
	userID := createTestUser(t, m, "alice")
	repo := NewHomologationRepo(m)

	_, err := repo.Create(&core.Homologation{RealName: "App", Status: "Bogus", CreatedBy: userID})
	require.ErrorIs(t, err, core.ErrValidation)
}

func TestHomologationCreateRequiresActiveCreator(t *testing.T) {
	m := newTestManager(t)
	repo := NewHomologationRepo(m)

	_, err := repo.Create(&core.Homologation{RealName: "App", CreatedBy: 424242})
	require.ErrorIs(t, err, core.ErrValidation)

	userID := createTestUser(t, m, "gone")
	_, err = NewUserRepo(m).Deactivate(userID)
	require.NoError(t, err)

	_, err = repo.Create(&core.Homologation{RealName: "App", CreatedBy: userID})
	require.ErrorIs(t, err, core.ErrValidation)
}

func TestHomologationDefaultStatusIsPending(t *testing.T) {
	m := newTestManager(t)
	userID := createTestUser(t, m, "alice")
	repo := NewHomologationRepo(m)

	id, err := repo.Create(&core.Homologation{RealName: "App", CreatedBy: userID})
	require.NoError(t, err)

	h, err := repo.GetByID(id)
	require.NoError(t, err)
	require.Equal(t, core.StatusPending, h.Status)
}

func TestHomologationGetAllFilters(t *testing.T) {
	m := newTestManager(t)
	userID := createTestUser(t, m, "alice")
	repo := NewHomologationRepo(m)

	seed := []core.Homologation{
		{RealName: "Alpha Suite", HomologationDate: strPtr("2026-01-10"), RepositoryLocation: strPtr(core.LocationAESA), CreatedBy: userID},
		{RealName: "Beta Tool", HomologationDate: strPtr("2026-02-20"), RepositoryLocation: strPtr(core.LocationApps), CreatedBy: userID},
		{RealName: "Gamma Alpha", HomologationDate: strPtr("2026-03-05"), CreatedBy: userID},
	}
	for i := range seed {
		_, err := repo.Create(&seed[i])
		require.NoError(t, err)
	}

	// Case-insensitive substring on real_name.
	got, err := repo.GetAll(core.Contains("real_name", "alpha"))
	require.NoError(t, err)
	require.Len(t, got, 2)

	// Inclusive date range.
	got, err = repo.GetAll(
		core.DateFrom("homologation_date", "2026-01-10"),
		core.DateTo("homologation_date", "2026-02-20"),
	)
	require.NoError(t, err)
	require.Len(t, got, 2)

	// Exact repository_location.
	got, err = repo.GetAll(core.Equals("repository_location", core.LocationApps))
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "Beta Tool", got[0].RealName)

	// Conjunction of predicates.
	got, err = repo.GetAll(
		core.Contains("real_name", "alpha"),
		core.Equals("repository_location", core.LocationAESA),
	)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "Alpha Suite", got[0].RealName)
}

func TestHomologationGetAllRejectsUnknownFilterField(t *testing.T) {
	m := newTestManager(t)
	repo := NewHomologationRepo(m)

	_, err := repo.GetAll(core.Equals("password_hash", "x"))
	require.Error(t, err)
}

func TestHomologationGetAllNewestFirst(t *testing.T) {
	m := newTestManager(t)
	userID := createTestUser(t, m, "alice")
	repo := NewHomologationRepo(m)

	for _, name := range []string{"First", "Second", "Third"} {
		_, err := repo.Create(&core.Homologation{RealName: name, CreatedBy: userID})
		require.NoError(t, err)
	}

	got, err := repo.GetAll()
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, "Third", got[0].RealName)
	require.Equal(t, "First", got[2].RealName)
}

func TestHomologationUpdatePartial(t *testing.T) {
	m := newTestManager(t)
	userID := createTestUser(t, m, "alice")
	repo := NewHomologationRepo(m)

	id, err := repo.Create(&core.Homologation{RealName: "Before", CreatedBy: userID})
	require.NoError(t, err)

	ok, err := repo.Update(id, core.FieldMap{
		"real_name": "After",
		"status":    core.StatusApproved,
	})
	require.NoError(t, err)
	require.True(t, ok)

	h, err := repo.GetByID(id)
	require.NoError(t, err)
	require.Equal(t, "After", h.RealName)
	require.Equal(t, core.StatusApproved, h.Status)
}

func TestHomologationUpdateNoRecognizedFields(t *testing.T) {
	m := newTestManager(t)
	userID := createTestUser(t, m, "alice")
	repo := NewHomologationRepo(m)

	id, err := repo.Create(&core.Homologation{RealName: "App", CreatedBy: userID})
	require.NoError(t, err)

	ok, err := repo.Update(id, core.FieldMap{"created_by": int64(99), "id": int64(1)})
	require.NoError(t, err)
	require.False(t, ok)
}

func TestHomologationUpdateValidatesFields(t *testing.T) {
	m := newTestManager(t)
	userID := createTestUser(t, m, "alice")
	repo := NewHomologationRepo(m)

	id, err := repo.Create(&core.Homologation{RealName: "App", CreatedBy: userID})
	require.NoError(t, err)

	_, err = repo.Update(id, core.FieldMap{"real_name": ""})
	require.ErrorIs(t, err, core.ErrValidation)

	_, err = repo.Update(id, core.FieldMap{"status": "Nope"})
	require.ErrorIs(t, err, core.ErrValidation)
}

func TestHomologationDelete(t *testing.T) {
	m := newTestManager(t)
	userID := createTestUser(t, m, "alice")
	repo := NewHomologationRepo(m)

	id, err := repo.Create(&core.Homologation{RealName: "Doomed", CreatedBy: userID})
	require.NoError(t, err)

	ok, err := repo.Delete(id)
	require.NoError(t, err)
	require.True(t, ok)

	h, err := repo.GetByID(id)
	require.NoError(t, err)
	require.Nil(t, h)

	ok, err = repo.Delete(id)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestHomologationSearchRanking(t *testing.T) {
	m := newTestManager(t)
	userID := createTestUser(t, m, "alice")
	repo := NewHomologationRepo(m)

	// Only match via details.
	_, err := repo.Create(&core.Homologation{
		RealName:  "Unrelated Name",
		Details:   strPtr("deployed to AESA share"),
		CreatedBy: userID,
	})
	require.NoError(t, err)

	// Match via logical_name.
	_, err = repo.Create(&core.Homologation{
		RealName:    "Other Tool",
		LogicalName: strPtr("aesa-sync"),
		CreatedBy:   userID,
	})
	require.NoError(t, err)

	// Match via real_name ranks first even though it was created first.
	_, err = repo.Create(&core.Homologation{
		RealName:  "AESA Gateway",
		CreatedBy: userID,
	})
	require.NoError(t, err)

	got, err := repo.Search("aesa")
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, "AESA Gateway", got[0].RealName)
	require.Equal(t, "Other Tool", got[1].RealName)
	require.Equal(t, "Unrelated Name", got[2].RealName)
}

func TestHomologationSearchNoMatches(t *testing.T) {
	m := newTestManager(t)
	userID := createTestUser(t, m, "alice")
	repo := NewHomologationRepo(m)

	_, err := repo.Create(&core.Homologation{RealName: "App", CreatedBy: userID})
	require.NoError(t, err)

	got, err := repo.Search("zzz-no-such-thing")
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestHomologationUpdatedAtAdvances(t *testing.T) {
	m := newTestManager(t)
	userID := createTestUser(t, m, "alice")
	repo := NewHomologationRepo(m)

	id, err := repo.Create(&core.Homologation{RealName: "App", CreatedBy: userID})
	require.NoError(t, err)

	before, err := repo.GetByID(id)
	require.NoError(t, err)

	ok, err := repo.Update(id, core.FieldMap{"details": "touched"})
	require.NoError(t, err)
	require.True(t, ok)

	after, err := repo.GetByID(id)
	require.NoError(t, err)
	require.False(t, after.UpdatedAt.Before(before.UpdatedAt))
	require.Equal(t, before.CreatedAt, after.CreatedAt)
}
