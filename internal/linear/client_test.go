package linear_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linearmcp/internal/linear"
	"linearmcp/internal/linear/lineartest"
)

func TestQueryDecodesData(t *testing.T) {
	srv := lineartest.New(t)
	srv.Reply("TeamByKey", map[string]any{"teams": lineartest.Nodes(map[string]any{"id": "t1", "key": "ENG"})})

	var out linear.TeamsData
	err := srv.Client().Query(context.Background(), linear.QueryTeamByKey, map[string]any{"key": "ENG"}, &out)
	require.NoError(t, err)
	team, ok := out.Teams.First()
	require.True(t, ok)
	assert.Equal(t, "t1", team.ID)

	call, ok := srv.Last("TeamByKey")
	require.True(t, ok)
	assert.Equal(t, "ENG", call.Variables["key"])
}

func TestQueryGraphQLErrorsAreUpstreamErrors(t *testing.T) {
	srv := lineartest.New(t)
	srv.Handle("IssueTeam", func(map[string]any) (any, []map[string]any) {
		return nil, []map[string]any{{"message": "Entity not found"}}
	})
	err := srv.Client().Query(context.Background(), linear.QueryIssueTeam, map[string]any{"id": "x"}, &linear.IssueData{})
	var upstream *linear.UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, http.StatusOK, upstream.Status)
	assert.Equal(t, []string{"Entity not found"}, upstream.Messages())
	assert.Contains(t, err.Error(), "linear 200")
}

func TestQueryNonSuccessStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "lin_api_key", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte("unauthorized"))
	}))
	defer ts.Close()

	c := linear.New(ts.URL, "lin_api_key")
	err := c.Query(context.Background(), linear.QueryTeams, nil, &linear.TeamsData{})
	var upstream *linear.UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, http.StatusUnauthorized, upstream.Status)
	assert.Contains(t, upstream.Error(), "unauthorized")
}

func TestNewSharesHTTPClient(t *testing.T) {
	a := linear.New("https://example.com/graphql", "k1")
	b := linear.New("https://example.com/graphql", "k2")
	require.NotNil(t, a.HTTPClient)
	assert.Same(t, a.HTTPClient, b.HTTPClient)
}

func TestQueryTimeout(t *testing.T) {
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer ts.Close()
	defer close(release)

	c := linear.New(ts.URL, "k")
	c.Timeout = 50 * time.Millisecond
	err := c.Query(context.Background(), linear.QueryTeams, nil, &linear.TeamsData{})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestQueryRejectsOversizedResponse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"teams":{"nodes":[]}},"pad":"`))
		_, _ = w.Write([]byte(strings.Repeat("x", linear.MaxResponseBytes)))
		_, _ = w.Write([]byte(`"}`))
	}))
	defer ts.Close()

	err := linear.New(ts.URL, "k").Query(context.Background(), linear.QueryTeams, nil, &linear.TeamsData{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds")
}

func TestOperationName(t *testing.T) {
	assert.Equal(t, "TeamByKey", linear.OperationName(linear.QueryTeamByKey))
	assert.Equal(t, "IssueCreate", linear.OperationName(linear.MutationIssueCreate))
	assert.Equal(t, "Issues", linear.OperationName(linear.QueryIssues))
	assert.Equal(t, "", linear.OperationName("{ viewer { id } }"))
}
