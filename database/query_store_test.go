package database

import (
	"context"
	"testing"

	"studioops_go/models"
	"studioops_go/storage"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *GormStore {
	t.Helper()
	db, err := OpenSQLite("file:"+uuid.NewString()+"?mode=memory&cache=shared", nil)
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	return NewGormStore(db)
}

func TestGormStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	rows := []models.ClassAssignment{
		{InstructorID: "inst-1", Date: "2024-06-10", StartTime: "09:00", EndTime: "10:00", PaymentAmount: 500, PaymentType: models.PaymentPerClass, ScheduleType: models.ScheduleAdhoc},
		{InstructorID: "inst-1", Date: "2024-06-11", StartTime: "09:00", EndTime: "10:00", PaymentAmount: 500, PaymentType: models.PaymentPerClass, ScheduleType: models.ScheduleAdhoc},
		{InstructorID: "inst-2", Date: "2024-06-10", StartTime: "11:00", EndTime: "12:00", PaymentAmount: 300, PaymentType: models.PaymentPerClass, ScheduleType: models.ScheduleAdhoc},
	}
	require.NoError(t, store.Insert(ctx, models.TableClassAssignments, &rows))
	for _, r := range rows {
		assert.NotEmpty(t, r.ID, "ids are filled before insert")
	}

	var got []models.ClassAssignment
	err := store.Select(ctx, models.TableClassAssignments, &got,
		[]storage.Filter{storage.Eq("instructor_id", "inst-1")},
		storage.Desc("date"))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "2024-06-11", got[0].Date)

	err = store.Update(ctx, models.TableClassAssignments,
		[]storage.Filter{storage.Eq("id", rows[0].ID)},
		map[string]interface{}{"class_status": string(models.ClassCancelled)})
	require.NoError(t, err)

	got = nil
	require.NoError(t, store.Select(ctx, models.TableClassAssignments, &got,
		[]storage.Filter{storage.Eq("class_status", string(models.ClassCancelled))}))
	require.Len(t, got, 1)
	assert.Equal(t, rows[0].ID, got[0].ID)

	require.NoError(t, store.Delete(ctx, models.TableClassAssignments,
		[]storage.Filter{storage.In("id", []string{rows[0].ID, rows[2].ID})}))

	got = nil
	require.NoError(t, store.Select(ctx, models.TableClassAssignments, &got, nil))
	require.Len(t, got, 1)
	assert.Equal(t, rows[1].ID, got[0].ID)
}

func TestGormStoreRejectsUnsafeInput(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	var out []models.ClassAssignment

	err := store.Select(ctx, models.TableClassAssignments, &out,
		[]storage.Filter{{Column: "id; DROP TABLE x", Op: storage.OpEq, Value: 1}})
	assert.ErrorIs(t, err, storage.ErrInvalidColumn)

	err = store.Select(ctx, models.TableClassAssignments, &out,
		[]storage.Filter{{Column: "id", Op: "LIKE", Value: "%"}})
	assert.ErrorIs(t, err, storage.ErrInvalidOp)

	err = store.Delete(ctx, models.TableClassAssignments, nil)
	assert.ErrorIs(t, err, storage.ErrMissingFilter)

	err = store.Update(ctx, models.TableClassAssignments, nil, map[string]interface{}{"notes": "x"})
	assert.ErrorIs(t, err, storage.ErrMissingFilter)
}
