package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"KataSweetShop/internal/catalog"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		message string
		want    error
	}{
		{"ok", http.StatusOK, "", nil},
		{"created", http.StatusCreated, "", nil},
		{"unauthorized", http.StatusUnauthorized, "unauthorized", ErrUnauthorized},
		{"forbidden", http.StatusForbidden, "forbidden", ErrForbidden},
		{"not found", http.StatusNotFound, "sweet not found", catalog.ErrNotFound},
		{"oversell", http.StatusBadRequest, "insufficient quantity available", catalog.ErrInsufficientStock},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := classify(tc.status, tc.message)
			if tc.want == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tc.want)
			}
		})
	}

	// other failures surface the API message
	err := classify(http.StatusBadRequest, "validation failed")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestAPIClient_Unreachable(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	ts.Close() // nothing listening anymore

	c := NewAPIClient(ts.URL)
	_, err := c.WhoAmI(context.Background(), "tok")
	assert.ErrorIs(t, err, ErrAPIUnavailable)
}

func TestAPIClient_BearerHeader(t *testing.T) {
	var gotAuth string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"data":{"id":"u_1","role":"user"}}`))
	}))
	t.Cleanup(ts.Close)

	c := NewAPIClient(ts.URL)
	u, err := c.WhoAmI(context.Background(), "the-token")
	require.NoError(t, err)
	assert.Equal(t, "Bearer the-token", gotAuth)
	assert.Equal(t, "u_1", u.ID)
}
