package tools

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linearmcp/internal/linear/lineartest"
)

func newTestToolset(t *testing.T) (*Toolset, *lineartest.Server) {
	t.Helper()
	srv := lineartest.New(t)
	logger, _ := test.NewNullLogger()
	ts := New(srv.Client(), logger)
	ts.Now = func() time.Time { return time.Date(2025, 3, 9, 22, 30, 0, 0, time.Local) }
	return ts, srv
}

func seedDirectory(srv *lineartest.Server) {
	srv.Handle("TeamByKey", func(vars map[string]any) (any, []map[string]any) {
		if vars["key"] == "ENG" {
			return map[string]any{"teams": lineartest.Nodes(map[string]any{"id": "t1", "key": "ENG"})}, nil
		}
		return map[string]any{"teams": lineartest.Nodes()}, nil
	})
	srv.Handle("UserByEmail", func(vars map[string]any) (any, []map[string]any) {
		if vars["email"] == "ana@example.com" {
			return map[string]any{"users": lineartest.Nodes(map[string]any{"id": "u1", "email": "ana@example.com"})}, nil
		}
		return map[string]any{"users": lineartest.Nodes()}, nil
	})
	srv.Reply("IssueByTeamNumber", map[string]any{"issues": lineartest.Nodes(map[string]any{"id": "issue-1", "identifier": "ENG-7"})})
	srv.Reply("WorkflowStates", map[string]any{"workflowStates": lineartest.Nodes(
		map[string]any{"id": "s-todo", "name": "Todo", "type": "unstarted"},
		map[string]any{"id": "s-doing", "name": "In Progress", "type": "started"},
	)})
	srv.Reply("Projects", map[string]any{"projects": lineartest.Nodes(map[string]any{"id": "p1", "name": "Launch"})})
	srv.Reply("IssueLabels", map[string]any{"issueLabels": lineartest.Nodes(
		map[string]any{"id": "l-bug", "name": "Bug"},
		map[string]any{"id": "l-feature", "name": "Feature"},
	)})
	issue := map[string]any{"id": "issue-1", "identifier": "ENG-7", "title": "Fix login"}
	srv.Reply("IssueCreate", map[string]any{"issueCreate": map[string]any{"success": true, "issue": issue}})
	srv.Reply("IssueUpdate", map[string]any{"issueUpdate": map[string]any{"success": true, "issue": issue}})
}

func call(t *testing.T, ts *Toolset, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	reg, ok := ts.Lookup(name)
	require.True(t, ok, name)
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	res, err := ts.wrap(reg)(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, res)
	return res
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	tc, ok := mcp.AsTextContent(res.Content[0])
	require.True(t, ok)
	return tc.Text
}

func input(t *testing.T, srv *lineartest.Server, op string) map[string]any {
	t.Helper()
	last, ok := srv.Last(op)
	require.True(t, ok, op)
	in, ok := last.Variables["input"].(map[string]any)
	require.True(t, ok)
	return in
}

func TestRegistrationsAreUnique(t *testing.T) {
	ts, _ := newTestToolset(t)
	seen := map[string]bool{}
	for _, reg := range ts.Registrations() {
		assert.False(t, seen[reg.Name], reg.Name)
		seen[reg.Name] = true
		assert.Equal(t, reg.Name, reg.Schema.Name)
		assert.NotNil(t, reg.Handler)
	}
	assert.Len(t, seen, 13)
	s := ts.NewServer("Linear MCP", "test")
	assert.NotNil(t, s)
}

func TestCreateIssueResolvesEverything(t *testing.T) {
	ts, srv := newTestToolset(t)
	seedDirectory(srv)

	res := call(t, ts, ToolCreateIssue, map[string]any{
		"teamKey":       "ENG",
		"title":         "Fix login",
		"description":   "It breaks",
		"assigneeEmail": "ana@example.com",
		"state":         "started",
		"projectName":   "launch",
		"labelNames":    []any{"Feature", "bug"},
		"priority":      float64(2),
		"dueToday":      true,
	})
	require.False(t, res.IsError, text(t, res))
	assert.Contains(t, text(t, res), "ENG-7")

	in := input(t, srv, "IssueCreate")
	assert.Equal(t, "t1", in["teamId"])
	assert.Equal(t, "Fix login", in["title"])
	assert.Equal(t, "It breaks", in["description"])
	assert.Equal(t, "u1", in["assigneeId"])
	assert.Equal(t, "s-doing", in["stateId"])
	assert.Equal(t, "p1", in["projectId"])
	assert.Equal(t, []any{"l-feature", "l-bug"}, in["labelIds"])
	assert.Equal(t, float64(2), in["priority"])
	assert.Equal(t, "2025-03-09", in["dueDate"])
	assert.Equal(t, 1, srv.Calls("TeamByKey"))
	assert.Zero(t, srv.Calls("IssueTeam"))
}

func TestCreateIssueUnknownTeam(t *testing.T) {
	ts, srv := newTestToolset(t)
	seedDirectory(srv)

	res := call(t, ts, ToolCreateIssue, map[string]any{"teamKey": "NOPE", "title": "x"})
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), "NOPE")
	assert.Zero(t, srv.Calls("IssueCreate"))
}

func TestCreateIssueValidatesArguments(t *testing.T) {
	ts, srv := newTestToolset(t)
	seedDirectory(srv)

	cases := map[string]map[string]any{
		"missing title":   {"teamKey": "ENG"},
		"bad due date":    {"teamKey": "ENG", "title": "x", "dueDate": "09/03/2025"},
		"impossible date": {"teamKey": "ENG", "title": "x", "dueDate": "2025-02-30"},
		"priority range":  {"teamKey": "ENG", "title": "x", "priority": float64(7)},
		"labels type":     {"teamKey": "ENG", "title": "x", "labelNames": []any{1}},
	}
	for name, args := range cases {
		res := call(t, ts, ToolCreateIssue, args)
		assert.True(t, res.IsError, name)
	}
	assert.Zero(t, srv.Calls("IssueCreate"))
}

func TestUpdateIssueSharesTeamLookup(t *testing.T) {
	ts, srv := newTestToolset(t)
	seedDirectory(srv)

	res := call(t, ts, ToolUpdateIssue, map[string]any{
		"idOrKey":    "ENG-7",
		"stateId":    "in progress",
		"projectId":  "Launch",
		"labelNames": []any{"Bug", "Bug"},
		"dueDate":    "2025-04-01",
	})
	require.False(t, res.IsError, text(t, res))

	last, ok := srv.Last("IssueUpdate")
	require.True(t, ok)
	assert.Equal(t, "issue-1", last.Variables["id"])
	in := input(t, srv, "IssueUpdate")
	assert.Equal(t, "s-doing", in["stateId"])
	assert.Equal(t, "p1", in["projectId"])
	assert.Equal(t, []any{"l-bug", "l-bug"}, in["labelIds"])
	assert.Equal(t, "2025-04-01", in["dueDate"])
	assert.NotContains(t, in, "title")
	assert.Equal(t, 1, srv.Calls("TeamByKey"))
}

func TestUpdateIssueCanonicalIDsSkipLookups(t *testing.T) {
	ts, srv := newTestToolset(t)
	seedDirectory(srv)
	issueID, stateID, labelID := uuid.NewString(), uuid.NewString(), uuid.NewString()

	res := call(t, ts, ToolUpdateIssue, map[string]any{
		"idOrKey":  issueID,
		"stateId":  stateID,
		"state":    "ignored when stateId is given",
		"labelIds": []any{labelID},
	})
	require.False(t, res.IsError, text(t, res))
	assert.Equal(t, 1, srv.Total(), "only the mutation should reach Linear")
	in := input(t, srv, "IssueUpdate")
	assert.Equal(t, stateID, in["stateId"])
	assert.Equal(t, []any{labelID}, in["labelIds"])
}

func TestUpdateIssueUnknownLabelFailsWholeCall(t *testing.T) {
	ts, srv := newTestToolset(t)
	seedDirectory(srv)

	res := call(t, ts, ToolUpdateIssue, map[string]any{"idOrKey": "ENG-7", "labelNames": []any{"Bug", "Ghost"}})
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), "Ghost")
	assert.Zero(t, srv.Calls("IssueUpdate"))
}

func TestUpdateIssueRequiresAChange(t *testing.T) {
	ts, srv := newTestToolset(t)
	seedDirectory(srv)

	res := call(t, ts, ToolUpdateIssue, map[string]any{"idOrKey": uuid.NewString()})
	assert.True(t, res.IsError)
	assert.Zero(t, srv.Calls("IssueUpdate"))
}

func TestDeleteAndCommentResolveKeys(t *testing.T) {
	ts, srv := newTestToolset(t)
	seedDirectory(srv)
	srv.Reply("IssueDelete", map[string]any{"issueDelete": map[string]any{"success": true}})
	srv.Reply("CommentCreate", map[string]any{"commentCreate": map[string]any{"success": true, "comment": map[string]any{"id": "c1"}}})

	res := call(t, ts, ToolComment, map[string]any{"issueIdOrKey": "ENG-7", "body": "looks good"})
	require.False(t, res.IsError, text(t, res))
	in := input(t, srv, "CommentCreate")
	assert.Equal(t, "issue-1", in["issueId"])
	assert.Equal(t, "looks good", in["body"])

	res = call(t, ts, ToolDeleteIssue, map[string]any{"idOrKey": "ENG-7"})
	require.False(t, res.IsError, text(t, res))
	last, _ := srv.Last("IssueDelete")
	assert.Equal(t, "issue-1", last.Variables["id"])
}

func TestGetIssue(t *testing.T) {
	ts, srv := newTestToolset(t)
	id := uuid.NewString()
	srv.Reply("IssueDetail", map[string]any{"issue": map[string]any{
		"id": id, "identifier": "ENG-7", "title": "Fix login",
		"state": map[string]any{"id": "s1", "name": "Todo"},
	}})

	res := call(t, ts, ToolGetIssue, map[string]any{"idOrKey": id})
	require.False(t, res.IsError)
	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &got))
	assert.Equal(t, "ENG-7", got["identifier"])

	srv.Reply("IssueDetail", map[string]any{"issue": nil})
	res = call(t, ts, ToolGetIssue, map[string]any{"idOrKey": id})
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), id)
}

func TestUpstreamErrorBecomesToolError(t *testing.T) {
	ts, srv := newTestToolset(t)
	srv.Handle("Teams", func(map[string]any) (any, []map[string]any) {
		return nil, []map[string]any{{"message": "rate limited"}}
	})
	res := call(t, ts, ToolListTeams, nil)
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), "rate limited")
}
