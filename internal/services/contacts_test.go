package services_test

import (
	"context"
	"strconv"
	"testing"

	"github.com/pis-platform/pis/internal/models"
	"github.com/pis-platform/pis/internal/services"
	"github.com/pis-platform/pis/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContactParentRule(t *testing.T) {
	db := testutil.OpenDB(t)
	seeded := testutil.SeedProperty(t, db, "P100")
	svc, err := services.NewContactService(db)
	require.NoError(t, err)
	ctx := context.Background()

	suiteID := seeded.Suites[0].SuiteID
	serviceID := seeded.Services[0].ServiceID

	_, err = svc.Create(ctx, "Dana", map[string]any{"name": "Orphan"})
	assert.ErrorIs(t, err, services.ErrInvalid)

	_, err = svc.Create(ctx, "Dana", map[string]any{"name": "Twice", "suite_id": suiteID, "service_id": serviceID})
	assert.ErrorIs(t, err, services.ErrInvalid)

	_, err = svc.Create(ctx, "Dana", map[string]any{"name": "Ghost", "utility_id": 9999})
	assert.ErrorIs(t, err, services.ErrInvalid)

	_, err = svc.Create(ctx, "Dana", map[string]any{"service_id": serviceID})
	assert.ErrorIs(t, err, services.ErrInvalid, "name is required")

	c, err := svc.Create(ctx, "Dana", map[string]any{
		"name":       "Vendor Rep",
		"service_id": serviceID,
		"suite_id":   0,
		"contact_id": "temp-abc",
	})
	require.NoError(t, err)
	assert.NotZero(t, c.ContactID)
	assert.Nil(t, c.SuiteID)
	assert.Equal(t, "P100", c.PropertyYardi)
}

func TestContactUpdateAndMove(t *testing.T) {
	db := testutil.OpenDB(t)
	seeded := testutil.SeedProperty(t, db, "P100")
	svc, err := services.NewContactService(db)
	require.NoError(t, err)
	ctx := context.Background()

	contact := seeded.Suites[0].Contacts[0]
	utilityID := seeded.Utilities[0].UtilityID

	_, err = svc.Update(ctx, "Sam", contact.ContactID, map[string]any{"utility_id": utilityID})
	assert.ErrorIs(t, err, services.ErrInvalid, "two parents")

	moved, err := svc.Update(ctx, "Sam", contact.ContactID, map[string]any{"utility_id": utilityID, "suite_id": nil, "phone": "555-0100"})
	require.NoError(t, err)
	assert.Nil(t, moved.SuiteID)
	require.NotNil(t, moved.UtilityID)
	assert.Equal(t, utilityID, *moved.UtilityID)
	assert.Equal(t, "555-0100", moved.Phone)

	byUtility, err := svc.List(ctx, services.ContactQuery{UtilityID: utilityID})
	require.NoError(t, err)
	assert.Len(t, byUtility, 1)

	byProperty, err := svc.List(ctx, services.ContactQuery{PropertyYardi: "P100"})
	require.NoError(t, err)
	assert.Len(t, byProperty, 1)

	require.NoError(t, svc.Delete(ctx, "Sam", contact.ContactID))
	_, err = svc.Get(ctx, contact.ContactID)
	assert.ErrorIs(t, err, services.ErrNotFound)

	var deletes int64
	require.NoError(t, db.Model(&models.EditHistory{}).Where("entity_type = ? AND action = ?", "contact", models.ActionDelete).Count(&deletes).Error)
	assert.EqualValues(t, 1, deletes)
}

func TestContactParentAsString(t *testing.T) {
	db := testutil.OpenDB(t)
	seeded := testutil.SeedProperty(t, db, "P100")
	svc, err := services.NewContactService(db)
	require.NoError(t, err)
	ctx := context.Background()

	suiteID := seeded.Suites[0].SuiteID
	c, err := svc.Create(ctx, "Dana", map[string]any{
		"name":       "Leasing Desk",
		"suite_id":   strconv.FormatUint(suiteID, 10),
		"utility_id": "",
	})
	require.NoError(t, err)
	require.NotNil(t, c.SuiteID)
	assert.Equal(t, suiteID, *c.SuiteID)
	assert.Nil(t, c.UtilityID)

	_, err = svc.Create(ctx, "Dana", map[string]any{"name": "Bad", "suite_id": "temp-1"})
	assert.ErrorIs(t, err, services.ErrInvalid)
}
