package tools

import (
	"context"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"

	"linearmcp/internal/linear"
	"linearmcp/internal/resolve"
)

const (
	ToolCreateIssue = "linear_create_issue"
	ToolUpdateIssue = "linear_update_issue"
	ToolDeleteIssue = "linear_delete_issue"
	ToolComment     = "linear_comment"
	ToolGetIssue    = "linear_get_issue"
)

// Options shared by create and update.
func issueFieldOptions() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("title", mcp.Description("Issue title")),
		mcp.WithString("description", mcp.Description("Markdown description")),
		mcp.WithString("assigneeEmail", mcp.Description("Email of the assignee")),
		mcp.WithString("stateId", mcp.Description("Workflow state ID; a non-ID value is treated as a state name or type")),
		mcp.WithString("state", mcp.Description("Workflow state name or type, e.g. \"In Progress\" or \"started\"")),
		mcp.WithString("projectId", mcp.Description("Project ID; a non-ID value is treated as a project name")),
		mcp.WithString("projectName", mcp.Description("Project name, used when projectId is absent")),
		mcp.WithArray("labelIds", mcp.WithStringItems(), mcp.Description("Label IDs; non-ID values are treated as label names")),
		mcp.WithArray("labelNames", mcp.WithStringItems(), mcp.Description("Label names, used when labelIds is absent")),
		mcp.WithNumber("priority", mcp.Description("0 none, 1 urgent, 2 high, 3 medium, 4 low")),
		mcp.WithString("dueDate", mcp.Description("Due date as YYYY-MM-DD")),
	}
}

func (t *Toolset) issueTools() []Registration {
	createOpts := append([]mcp.ToolOption{
		mcp.WithDescription("Create a Linear issue in the team identified by its key"),
		mcp.WithString("teamKey", mcp.Required(), mcp.Description("Team key, e.g. ENG")),
		mcp.WithBoolean("dueToday", mcp.Description("Set the due date to today (server local date)")),
	}, issueFieldOptions()...)
	updateOpts := append([]mcp.ToolOption{
		mcp.WithDescription("Update a Linear issue by ID or key (e.g. ENG-123)"),
		mcp.WithString("idOrKey", mcp.Required(), mcp.Description("Issue ID or key")),
	}, issueFieldOptions()...)

	return []Registration{
		{Name: ToolCreateIssue, Schema: mcp.NewTool(ToolCreateIssue, createOpts...), Handler: t.createIssue},
		{Name: ToolUpdateIssue, Schema: mcp.NewTool(ToolUpdateIssue, updateOpts...), Handler: t.updateIssue},
		{
			Name: ToolDeleteIssue,
			Schema: mcp.NewTool(ToolDeleteIssue,
				mcp.WithDescription("Delete (archive) a Linear issue"),
				mcp.WithString("idOrKey", mcp.Required(), mcp.Description("Issue ID or key"))),
			Handler: t.deleteIssue,
		},
		{
			Name: ToolComment,
			Schema: mcp.NewTool(ToolComment,
				mcp.WithDescription("Comment on a Linear issue"),
				mcp.WithString("issueIdOrKey", mcp.Required(), mcp.Description("Issue ID or key")),
				mcp.WithString("body", mcp.Required(), mcp.Description("Markdown comment body"))),
			Handler: t.comment,
		},
		{
			Name: ToolGetIssue,
			Schema: mcp.NewTool(ToolGetIssue,
				mcp.WithDescription("Fetch one Linear issue with its state, assignee, team, project and labels"),
				mcp.WithString("idOrKey", mcp.Required(), mcp.Description("Issue ID or key"))),
			Handler: t.getIssue,
		},
	}
}

// issueInput resolves the optional issue fields into a mutation input.
// Only supplied fields are set, so an update never clears a field.
func (t *Toolset) issueInput(ctx context.Context, call *resolve.Call, args map[string]any) (map[string]any, error) {
	input := map[string]any{}
	if s := stringArg(args, "title"); s != "" {
		input["title"] = s
	}
	if s, ok := args["description"].(string); ok && s != "" {
		input["description"] = s
	}
	if email := stringArg(args, "assigneeEmail"); email != "" {
		id, err := t.resolver.UserIDByEmail(ctx, email)
		if err != nil {
			return nil, err
		}
		input["assigneeId"] = id
	}
	stateID, err := call.StateID(ctx, stringArg(args, "stateId"), stringArg(args, "state"))
	if err != nil {
		return nil, err
	}
	if stateID != "" {
		input["stateId"] = stateID
	}
	projectID, err := call.ProjectID(ctx, stringArg(args, "projectId"), stringArg(args, "projectName"))
	if err != nil {
		return nil, err
	}
	if projectID != "" {
		input["projectId"] = projectID
	}
	labelIDs, err := stringsArg(args, "labelIds")
	if err != nil {
		return nil, err
	}
	labelNames, err := stringsArg(args, "labelNames")
	if err != nil {
		return nil, err
	}
	labels, err := call.LabelIDs(ctx, labelIDs, labelNames)
	if err != nil {
		return nil, err
	}
	if len(labels) > 0 {
		input["labelIds"] = labels
	}
	priority, ok, err := intArg(args, "priority")
	if err != nil {
		return nil, err
	}
	if ok {
		if priority < 0 || priority > 4 {
			return nil, invalidArgument{"priority", "must be between 0 and 4"}
		}
		input["priority"] = priority
	}
	due, err := dayArg(args, "dueDate")
	if err != nil {
		return nil, err
	}
	if boolArg(args, "dueToday", false) {
		due = localDay(t.Now())
	}
	if due != "" {
		input["dueDate"] = due
	}
	return input, nil
}

func (t *Toolset) createIssue(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	teamKey, err := requiredString(args, "teamKey")
	if err != nil {
		return nil, err
	}
	title, err := requiredString(args, "title")
	if err != nil {
		return nil, err
	}
	teamID, err := t.resolver.TeamID(ctx, teamKey)
	if err != nil {
		return nil, err
	}
	input, err := t.issueInput(ctx, t.resolver.ForTeam(teamID), args)
	if err != nil {
		return nil, err
	}
	input["teamId"] = teamID
	input["title"] = title

	var data linear.IssueCreateData
	if err := t.q.Query(ctx, linear.MutationIssueCreate, map[string]any{"input": input}, &data); err != nil {
		return nil, err
	}
	if !data.IssueCreate.Success || data.IssueCreate.Issue == nil {
		return nil, errors.New("linear rejected issue creation")
	}
	return success(data.IssueCreate.Issue), nil
}

func (t *Toolset) updateIssue(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	ref, err := requiredString(args, "idOrKey")
	if err != nil {
		return nil, err
	}
	call := t.resolver.ForIssue(ref)
	id, err := call.IssueID(ctx)
	if err != nil {
		return nil, err
	}
	input, err := t.issueInput(ctx, call, args)
	if err != nil {
		return nil, err
	}
	if len(input) == 0 {
		return nil, invalidArgument{"input", "nothing to update"}
	}

	var data linear.IssueUpdateData
	if err := t.q.Query(ctx, linear.MutationIssueUpdate, map[string]any{"id": id, "input": input}, &data); err != nil {
		return nil, err
	}
	if !data.IssueUpdate.Success || data.IssueUpdate.Issue == nil {
		return nil, errors.New("linear rejected issue update")
	}
	return success(data.IssueUpdate.Issue), nil
}

func (t *Toolset) deleteIssue(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	ref, err := requiredString(args, "idOrKey")
	if err != nil {
		return nil, err
	}
	id, err := t.resolver.IssueID(ctx, ref)
	if err != nil {
		return nil, err
	}
	var data linear.IssueDeleteData
	if err := t.q.Query(ctx, linear.MutationIssueDelete, map[string]any{"id": id}, &data); err != nil {
		return nil, err
	}
	return success(map[string]any{"id": id, "deleted": data.IssueDelete.Success}), nil
}

func (t *Toolset) comment(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	ref, err := requiredString(args, "issueIdOrKey")
	if err != nil {
		return nil, err
	}
	body, err := requiredString(args, "body")
	if err != nil {
		return nil, err
	}
	id, err := t.resolver.IssueID(ctx, ref)
	if err != nil {
		return nil, err
	}
	var data linear.CommentCreateData
	vars := map[string]any{"input": map[string]any{"issueId": id, "body": body}}
	if err := t.q.Query(ctx, linear.MutationCommentCreate, vars, &data); err != nil {
		return nil, err
	}
	if !data.CommentCreate.Success || data.CommentCreate.Comment == nil {
		return nil, errors.New("linear rejected comment")
	}
	return success(data.CommentCreate.Comment), nil
}

func (t *Toolset) getIssue(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	ref, err := requiredString(args, "idOrKey")
	if err != nil {
		return nil, err
	}
	id, err := t.resolver.IssueID(ctx, ref)
	if err != nil {
		return nil, err
	}
	var data linear.IssueData
	if err := t.q.Query(ctx, linear.QueryIssueDetail, map[string]any{"id": id}, &data); err != nil {
		return nil, err
	}
	if data.Issue == nil {
		return nil, &resolve.NotFoundError{Kind: resolve.KindIssue, Ref: ref}
	}
	return success(data.Issue), nil
}
