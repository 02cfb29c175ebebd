package seeders

import (
	"context"
	"testing"

	"studioops_go/database"
	"studioops_go/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedAllIsIdempotent(t *testing.T) {
	db, err := database.OpenSQLite("file:"+uuid.NewString()+"?mode=memory&cache=shared", nil)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	require.NoError(t, SeedAll(db))
	require.NoError(t, SeedAll(db))

	var packages, templates int64
	require.NoError(t, db.Model(&models.ClassPackage{}).Count(&packages).Error)
	require.NoError(t, db.Model(&models.WeeklyScheduleTemplate{}).Count(&templates).Error)
	assert.Equal(t, int64(2), packages)
	assert.Equal(t, int64(2), templates)

	var roles []models.UserRole
	require.NoError(t, db.Where("role = ?", "instructor").Find(&roles).Error)
	assert.Len(t, roles, 2)

	store := database.NewGormStore(db)
	var pkgs []models.ClassPackage
	require.NoError(t, store.Select(context.Background(), models.TableClassPackages, &pkgs, nil))
	assert.Len(t, pkgs, 2)
}
