package client_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pis-platform/pis/internal/client"
	"github.com/pis-platform/pis/internal/logging"
	"github.com/pis-platform/pis/internal/records"
	"github.com/pis-platform/pis/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*client.Client, *testutil.API) {
	logging.Discard()
	api := testutil.StartAPI(t)
	testutil.SeedProperty(t, api.DB, "P100")
	return client.New(api.URL, client.StaticToken(api.Token)), api
}

func TestPropertyRoundTrip(t *testing.T) {
	c, _ := newClient(t)
	ctx := context.Background()

	page, err := c.ListProperties(ctx, client.PropertyQuery{Search: "main"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Total)
	require.Len(t, page.Properties, 1)
	assert.Equal(t, "P100", page.Properties[0].ID())

	prop, err := c.GetProperty(ctx, "P100")
	require.NoError(t, err)
	assert.Len(t, prop.Children("suites", records.KindSuite), 1)

	updated, err := c.UpdateProperty(ctx, "P100", map[string]any{"city": "Tempe"})
	require.NoError(t, err)
	assert.Equal(t, "Tempe", updated.String("city"))

	_, err = c.CreateProperty(ctx, map[string]any{"yardi": "P100"})
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.Status)
}

func TestSectionCRUD(t *testing.T) {
	c, _ := newClient(t)
	ctx := context.Background()

	created, err := c.Create(ctx, records.KindCode, map[string]any{"property_yardi": "P100", "description": "Gate"})
	require.NoError(t, err)
	assert.False(t, created.IsTemp())
	assert.NotEmpty(t, created.ID())

	codes, err := c.List(ctx, records.KindCode, "P100")
	require.NoError(t, err)
	assert.Len(t, codes, 2)

	updated, err := c.Update(ctx, records.KindCode, created.ID(), created.With("code", "4321").Payload())
	require.NoError(t, err)
	assert.Equal(t, "4321", updated.String("code"))

	require.NoError(t, c.Delete(ctx, records.KindCode, created.ID()))
	_, err = c.Get(ctx, records.KindCode, created.ID())
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
}

func TestTemporaryIDsNeverSent(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	t.Cleanup(srv.Close)
	c := client.New(srv.URL, nil)
	ctx := context.Background()

	_, err := c.Update(ctx, records.KindSuite, "temp-1", map[string]any{})
	assert.Error(t, err)
	assert.Error(t, c.Delete(ctx, records.KindSuite, "temp-1"))
	_, err = c.Create(ctx, records.KindProperty, map[string]any{})
	assert.Error(t, err)
	assert.Zero(t, calls)
}

func TestUnauthorizedClassification(t *testing.T) {
	_, api := newClient(t)
	ctx := context.Background()

	cases := map[string]struct {
		token string
		want  client.Reason
	}{
		"missing": {"", client.ReasonMissing},
		"expired": {api.Signer.Token(t, "Dana Lee", -time.Hour), client.ReasonExpired},
		"invalid": {testutil.NewSigner(t).Token(t, "Mallory", time.Hour), client.ReasonInvalid},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			var got client.Reason
			c := client.New(api.URL, client.StaticToken(tc.token))
			c.OnUnauthorized = func(r client.Reason) { got = r }

			_, err := c.GetProperty(ctx, "P100")
			require.Error(t, err)
			assert.True(t, errors.Is(err, client.ErrUnauthorized))
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestClassifyUnauthorized(t *testing.T) {
	assert.Equal(t, client.ReasonExpired, client.ClassifyUnauthorized("Token expired"))
	assert.Equal(t, client.ReasonInvalid, client.ClassifyUnauthorized("Invalid token"))
	assert.Equal(t, client.ReasonMissing, client.ClassifyUnauthorized("Missing token"))
	assert.Equal(t, client.ReasonUnknown, client.ClassifyUnauthorized("nope"))
	assert.NotEmpty(t, client.ReasonExpired.Message())
}

func TestPhotosAndHistory(t *testing.T) {
	c, _ := newClient(t)
	ctx := context.Background()

	url, err := c.UploadPhoto(ctx, "front.jpg", strings.NewReader("jpeg bytes"))
	require.NoError(t, err)
	assert.Contains(t, url, "/uploads/photos/")

	photo, err := c.CreatePhoto(ctx, "P100", url, "Front")
	require.NoError(t, err)
	assert.Equal(t, "Front", photo.Caption)

	photos, err := c.ListPhotos(ctx, "P100")
	require.NoError(t, err)
	assert.Len(t, photos, 1)

	require.NoError(t, c.DeletePhoto(ctx, photo.PhotoID))

	history, err := c.EditHistory(ctx, 10)
	require.NoError(t, err)
	require.NotEmpty(t, history)
	assert.Equal(t, "delete", history[0].Action)
	assert.Equal(t, "photo", history[0].EntityType)
	assert.Equal(t, "Dana Lee", history[0].EditedBy)
}
