package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"linearmcp/internal/linear"
)

const (
	ToolListIssues      = "linear_list_issues"
	ToolListIssuesToday = "linear_list_issues_today"
	ToolListTeams       = "linear_list_teams"
	ToolListUsers       = "linear_list_users"
	ToolListLabels      = "linear_list_labels"
	ToolListStates      = "linear_list_states"
)

func (t *Toolset) listTools() []Registration {
	day := func(name, desc string) mcp.ToolOption {
		return mcp.WithString(name, mcp.Description(desc+" (YYYY-MM-DD)"))
	}
	return []Registration{
		{
			Name: ToolListIssues,
			Schema: mcp.NewTool(ToolListIssues,
				mcp.WithDescription("List issues filtered by team, assignee and creation or update day"),
				mcp.WithString("teamKey", mcp.Description("Team key, e.g. ENG")),
				mcp.WithString("assigneeEmail", mcp.Description("Email of the assignee")),
				day("createdOn", "Created on this day"),
				day("updatedOn", "Updated on this day"),
				day("createdAfter", "Created on or after this day"),
				day("createdBefore", "Created on or before this day"),
				day("updatedAfter", "Updated on or after this day"),
				day("updatedBefore", "Updated on or before this day"),
			),
			Handler: t.listIssues,
		},
		{
			Name: ToolListIssuesToday,
			Schema: mcp.NewTool(ToolListIssuesToday,
				mcp.WithDescription("List issues updated today"),
				mcp.WithString("teamKey", mcp.Description("Team key, e.g. ENG")),
				mcp.WithString("assigneeEmail", mcp.Description("Email of the assignee")),
			),
			Handler: t.listIssuesToday,
		},
		{
			Name:    ToolListTeams,
			Schema:  mcp.NewTool(ToolListTeams, mcp.WithDescription("List teams with their keys")),
			Handler: t.listTeams,
		},
		{
			Name:    ToolListUsers,
			Schema:  mcp.NewTool(ToolListUsers, mcp.WithDescription("List users with their emails")),
			Handler: t.listUsers,
		},
		{
			Name: ToolListLabels,
			Schema: mcp.NewTool(ToolListLabels,
				mcp.WithDescription("List issue labels, optionally limited to one team"),
				mcp.WithString("teamKey", mcp.Description("Team key, e.g. ENG"))),
			Handler: t.listLabels,
		},
		{
			Name: ToolListStates,
			Schema: mcp.NewTool(ToolListStates,
				mcp.WithDescription("List the workflow states of a team"),
				mcp.WithString("teamKey", mcp.Required(), mcp.Description("Team key, e.g. ENG"))),
			Handler: t.listStates,
		},
	}
}

// issueFilter resolves the team and assignee filters shared by the list
// tools. Absent arguments leave the variable unset.
func (t *Toolset) issueFilter(ctx context.Context, args map[string]any) (map[string]any, error) {
	vars := map[string]any{}
	if key := stringArg(args, "teamKey"); key != "" {
		id, err := t.resolver.TeamID(ctx, key)
		if err != nil {
			return nil, err
		}
		vars["teamId"] = id
	}
	if email := stringArg(args, "assigneeEmail"); email != "" {
		id, err := t.resolver.UserIDByEmail(ctx, email)
		if err != nil {
			return nil, err
		}
		vars["assigneeId"] = id
	}
	return vars, nil
}

func (t *Toolset) listIssues(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	bounds := map[string]string{}
	for _, name := range []string{"createdAfter", "createdBefore", "updatedAfter", "updatedBefore", "createdOn", "updatedOn"} {
		day, err := dayArg(args, name)
		if err != nil {
			return nil, err
		}
		bounds[name] = day
	}
	if on := bounds["createdOn"]; on != "" {
		bounds["createdAfter"], bounds["createdBefore"] = on, on
	}
	if on := bounds["updatedOn"]; on != "" {
		bounds["updatedAfter"], bounds["updatedBefore"] = on, on
	}
	vars, err := t.issueFilter(ctx, args)
	if err != nil {
		return nil, err
	}
	for _, name := range []string{"createdAfter", "updatedAfter"} {
		if day := bounds[name]; day != "" {
			vars[name] = dayStart(day)
		}
	}
	for _, name := range []string{"createdBefore", "updatedBefore"} {
		if day := bounds[name]; day != "" {
			vars[name] = dayEnd(day)
		}
	}
	return t.queryIssues(ctx, vars)
}

func (t *Toolset) listIssuesToday(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	vars, err := t.issueFilter(ctx, args)
	if err != nil {
		return nil, err
	}
	today := localDay(t.Now())
	vars["updatedAfter"] = dayStart(today)
	vars["updatedBefore"] = dayEnd(today)
	return t.queryIssues(ctx, vars)
}

func (t *Toolset) queryIssues(ctx context.Context, vars map[string]any) (*mcp.CallToolResult, error) {
	var data linear.IssuesData
	if err := t.q.Query(ctx, linear.QueryIssues, vars, &data); err != nil {
		return nil, err
	}
	issues := data.Issues.Nodes
	if issues == nil {
		issues = []linear.Issue{}
	}
	return success(map[string]any{"issues": issues, "count": len(issues)}), nil
}

func (t *Toolset) listTeams(ctx context.Context, _ map[string]any) (*mcp.CallToolResult, error) {
	var data linear.TeamsData
	if err := t.q.Query(ctx, linear.QueryTeams, nil, &data); err != nil {
		return nil, err
	}
	return success(map[string]any{"teams": nonNil(data.Teams.Nodes)}), nil
}

func (t *Toolset) listUsers(ctx context.Context, _ map[string]any) (*mcp.CallToolResult, error) {
	var data linear.UsersData
	if err := t.q.Query(ctx, linear.QueryUsers, nil, &data); err != nil {
		return nil, err
	}
	return success(map[string]any{"users": nonNil(data.Users.Nodes)}), nil
}

func (t *Toolset) listLabels(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	var teamID string
	if key := stringArg(args, "teamKey"); key != "" {
		id, err := t.resolver.TeamID(ctx, key)
		if err != nil {
			return nil, err
		}
		teamID = id
	}
	labels, err := t.resolver.Labels(ctx, teamID)
	if err != nil {
		return nil, err
	}
	return success(map[string]any{"labels": nonNil(labels)}), nil
}

func (t *Toolset) listStates(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	key, err := requiredString(args, "teamKey")
	if err != nil {
		return nil, err
	}
	teamID, err := t.resolver.TeamID(ctx, key)
	if err != nil {
		return nil, err
	}
	states, err := t.resolver.States(ctx, teamID)
	if err != nil {
		return nil, err
	}
	return success(map[string]any{"states": nonNil(states)}), nil
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
