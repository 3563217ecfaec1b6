package requestor

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flagcore/flagcore-go/pkg/ldmodel"
	"github.com/flagcore/flagcore-go/pkg/ldtest/fixtureserver"
)

func TestGetReturnsFreshBodyAndCachesETag(t *testing.T) {
	srv := fixtureserver.New([]byte(`{"flags":{}}`))
	defer srv.Close()
	srv.SetSnapshot([]byte(`{"flags":{"f":1}}`), `"v1"`)

	r := New("sdk-key", "TestClient/1.0", 2*time.Second, 2*time.Second, nil)
	body, err := r.Get(context.Background(), srv.URL+"/sdk/latest-all")
	require.NoError(t, err)
	assert.JSONEq(t, `{"flags":{"f":1}}`, string(body))
}

func TestGetReturns304CachedBody(t *testing.T) {
	srv := fixtureserver.New(nil)
	defer srv.Close()
	srv.SetSnapshot([]byte(`{"flags":{"f":1}}`), `"v1"`)

	r := New("sdk-key", "TestClient/1.0", 2*time.Second, 2*time.Second, nil)
	first, err := r.Get(context.Background(), srv.URL+"/sdk/latest-all")
	require.NoError(t, err)

	second, err := r.Get(context.Background(), srv.URL+"/sdk/latest-all")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestGetUnexpectedStatusRaises(t *testing.T) {
	srv := fixtureserver.New(nil)
	defer srv.Close()
	srv.SetStatus(http.StatusInternalServerError)

	r := New("sdk-key", "TestClient/1.0", 2*time.Second, 2*time.Second, nil)
	_, err := r.Get(context.Background(), srv.URL+"/sdk/latest-all")
	require.Error(t, err)

	var uerr *ldmodel.ErrUnexpectedResponse
	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, http.StatusInternalServerError, uerr.Status)
}

func TestUnrecoverableHTTPStatusClassification(t *testing.T) {
	assert.True(t, ldmodel.IsUnrecoverableHTTPStatus(401))
	assert.True(t, ldmodel.IsUnrecoverableHTTPStatus(403))
	assert.True(t, ldmodel.IsUnrecoverableHTTPStatus(404))
	assert.False(t, ldmodel.IsUnrecoverableHTTPStatus(400))
	assert.False(t, ldmodel.IsUnrecoverableHTTPStatus(408))
	assert.False(t, ldmodel.IsUnrecoverableHTTPStatus(429))
	assert.False(t, ldmodel.IsUnrecoverableHTTPStatus(500))
	assert.False(t, ldmodel.IsUnrecoverableHTTPStatus(200))
}
