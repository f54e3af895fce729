package resolve_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linearmcp/internal/linear/lineartest"
	"linearmcp/internal/resolve"
)

func directory(srv *lineartest.Server) {
	srv.Reply("WorkflowStates", map[string]any{"workflowStates": lineartest.Nodes(
		map[string]any{"id": "s-todo", "name": "Todo", "type": "unstarted"},
		map[string]any{"id": "s-doing", "name": "In Progress", "type": "started"},
	)})
	srv.Reply("Projects", map[string]any{"projects": lineartest.Nodes(
		map[string]any{"id": "p1", "name": "Launch"},
	)})
	srv.Reply("IssueLabels", map[string]any{"issueLabels": lineartest.Nodes(
		map[string]any{"id": "l-bug", "name": "Bug"},
		map[string]any{"id": "l-feature", "name": "Feature"},
	)})
}

func TestCallCompoundKeyFetchesTeamOnce(t *testing.T) {
	srv := lineartest.New(t)
	srv.Reply("TeamByKey", map[string]any{"teams": lineartest.Nodes(team("t1", "ENG"))})
	srv.Reply("IssueByTeamNumber", map[string]any{"issues": lineartest.Nodes(map[string]any{"id": "issue-1"})})
	directory(srv)
	call := resolve.New(srv.Client()).ForIssue("ENG-7")
	ctx := context.Background()

	id, err := call.IssueID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "issue-1", id)

	state, err := call.StateID(ctx, "", "in progress")
	require.NoError(t, err)
	assert.Equal(t, "s-doing", state)
	project, err := call.ProjectID(ctx, "", "launch")
	require.NoError(t, err)
	assert.Equal(t, "p1", project)
	labels, err := call.LabelIDs(ctx, nil, []string{"Feature", "Bug"})
	require.NoError(t, err)
	assert.Equal(t, []string{"l-feature", "l-bug"}, labels)

	assert.Equal(t, 1, srv.Calls("TeamByKey"))
	assert.Zero(t, srv.Calls("IssueTeam"))
	last, _ := srv.Last("WorkflowStates")
	assert.Equal(t, "t1", last.Variables["teamId"])
}

func TestCallCanonicalIssueDerivesTeamOnce(t *testing.T) {
	srv := lineartest.New(t)
	issueID := uuid.NewString()
	srv.Reply("IssueTeam", map[string]any{"issue": map[string]any{"id": issueID, "team": team("t9", "OPS")}})
	directory(srv)
	call := resolve.New(srv.Client()).ForIssue(issueID)
	ctx := context.Background()

	id, err := call.IssueID(ctx)
	require.NoError(t, err)
	assert.Equal(t, issueID, id)
	assert.Zero(t, srv.Total())

	_, err = call.StateID(ctx, "", "todo")
	require.NoError(t, err)
	_, err = call.LabelIDs(ctx, nil, []string{"bug"})
	require.NoError(t, err)

	assert.Equal(t, 1, srv.Calls("IssueTeam"))
	last, _ := srv.Last("IssueLabels")
	assert.Equal(t, "t9", last.Variables["teamId"])
}

func TestCallSkipsTeamWhenNothingNeedsIt(t *testing.T) {
	srv := lineartest.New(t)
	call := resolve.New(srv.Client()).ForIssue(uuid.NewString())
	ctx := context.Background()

	stateID := uuid.NewString()
	got, err := call.StateID(ctx, stateID, "")
	require.NoError(t, err)
	assert.Equal(t, stateID, got)
	got, err = call.ProjectID(ctx, "", "")
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Zero(t, srv.Total())
}

func TestCallForTeam(t *testing.T) {
	srv := lineartest.New(t)
	directory(srv)
	call := resolve.New(srv.Client()).ForTeam("t1")

	got, err := call.StateID(context.Background(), "started", "")
	require.NoError(t, err)
	assert.Equal(t, "s-doing", got)
	assert.Zero(t, srv.Calls("IssueTeam"))
	assert.Zero(t, srv.Calls("TeamByKey"))
}

func TestCallIssueWithoutTeam(t *testing.T) {
	srv := lineartest.New(t)
	srv.Reply("IssueTeam", map[string]any{"issue": map[string]any{"id": "legacy-1"}})
	call := resolve.New(srv.Client()).ForIssue("legacy-1")

	_, err := call.StateID(context.Background(), "", "todo")
	require.ErrorIs(t, err, resolve.ErrNotFound)
	assert.Contains(t, err.Error(), "legacy-1")
}

func TestCallCompoundKeyReusesTeamResolvedFirst(t *testing.T) {
	srv := lineartest.New(t)
	srv.Reply("TeamByKey", map[string]any{"teams": lineartest.Nodes(team("t1", "ENG"))})
	srv.Handle("IssueByTeamNumber", func(vars map[string]any) (any, []map[string]any) {
		assert.Equal(t, "t1", vars["teamId"])
		return map[string]any{"issues": lineartest.Nodes(map[string]any{"id": "issue-7"})}, nil
	})
	directory(srv)
	call := resolve.New(srv.Client()).ForIssue("ENG-7")
	ctx := context.Background()

	state, err := call.StateID(ctx, "", "todo")
	require.NoError(t, err)
	assert.Equal(t, "s-todo", state)
	id, err := call.IssueID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "issue-7", id)

	assert.Equal(t, 1, srv.Calls("TeamByKey"))
	assert.Equal(t, 1, srv.Calls("IssueByTeamNumber"))
}
