package tools

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linearmcp/internal/linear/lineartest"
)

func TestListIssuesDayBounds(t *testing.T) {
	ts, srv := newTestToolset(t)
	seedDirectory(srv)
	srv.Reply("Issues", map[string]any{"issues": lineartest.Nodes(map[string]any{"id": "i1", "identifier": "ENG-1", "title": "A"})})

	res := call(t, ts, ToolListIssues, map[string]any{
		"teamKey":       "ENG",
		"assigneeEmail": "ana@example.com",
		"createdOn":     "2025-01-15",
		"updatedAfter":  "2025-01-01",
	})
	require.False(t, res.IsError, text(t, res))

	last, ok := srv.Last("Issues")
	require.True(t, ok)
	v := last.Variables
	assert.Equal(t, "t1", v["teamId"])
	assert.Equal(t, "u1", v["assigneeId"])
	assert.Equal(t, "2025-01-15T00:00:00.000Z", v["createdAfter"])
	assert.Equal(t, "2025-01-15T23:59:59.999Z", v["createdBefore"])
	assert.Equal(t, "2025-01-01T00:00:00.000Z", v["updatedAfter"])
	assert.NotContains(t, v, "updatedBefore")

	var out struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &out))
	assert.Equal(t, 1, out.Count)
}

func TestListIssuesWithoutFilters(t *testing.T) {
	ts, srv := newTestToolset(t)
	srv.Reply("Issues", map[string]any{"issues": lineartest.Nodes()})

	res := call(t, ts, ToolListIssues, map[string]any{})
	require.False(t, res.IsError, text(t, res))
	assert.JSONEq(t, `{"issues": [], "count": 0}`, text(t, res))
	assert.Zero(t, srv.Calls("TeamByKey"))
	assert.Zero(t, srv.Calls("UserByEmail"))
}

func TestListIssuesRejectsBadDay(t *testing.T) {
	ts, srv := newTestToolset(t)
	res := call(t, ts, ToolListIssues, map[string]any{"updatedOn": "yesterday"})
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), "updatedOn")
	assert.Zero(t, srv.Total())
}

func TestListIssuesUnknownAssignee(t *testing.T) {
	ts, srv := newTestToolset(t)
	seedDirectory(srv)
	res := call(t, ts, ToolListIssues, map[string]any{"assigneeEmail": "ghost@example.com"})
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), "ghost@example.com")
	assert.Zero(t, srv.Calls("Issues"))
}

func TestListIssuesTodayUsesLocalDate(t *testing.T) {
	ts, srv := newTestToolset(t)
	srv.Reply("Issues", map[string]any{"issues": lineartest.Nodes()})

	res := call(t, ts, ToolListIssuesToday, nil)
	require.False(t, res.IsError, text(t, res))
	last, _ := srv.Last("Issues")
	assert.Equal(t, "2025-03-09T00:00:00.000Z", last.Variables["updatedAfter"])
	assert.Equal(t, "2025-03-09T23:59:59.999Z", last.Variables["updatedBefore"])
}

func TestListDirectories(t *testing.T) {
	ts, srv := newTestToolset(t)
	seedDirectory(srv)
	srv.Reply("Teams", map[string]any{"teams": lineartest.Nodes(map[string]any{"id": "t1", "key": "ENG", "name": "Engineering"})})
	srv.Reply("Users", map[string]any{"users": lineartest.Nodes()})

	assert.Contains(t, text(t, call(t, ts, ToolListTeams, nil)), "Engineering")
	assert.JSONEq(t, `{"users": []}`, text(t, call(t, ts, ToolListUsers, nil)))

	res := call(t, ts, ToolListStates, map[string]any{"teamKey": "ENG"})
	require.False(t, res.IsError)
	assert.Contains(t, text(t, res), "In Progress")

	res = call(t, ts, ToolListLabels, map[string]any{"teamKey": "ENG"})
	require.False(t, res.IsError)
	last, _ := srv.Last("IssueLabels")
	assert.Equal(t, "t1", last.Variables["teamId"])

	res = call(t, ts, ToolListStates, map[string]any{})
	assert.True(t, res.IsError)
}
