package tools

import (
	"context"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"

	"linearmcp/internal/linear"
)

const (
	ToolWebhookCreate = "linear_webhook_create"
	ToolWebhookDelete = "linear_webhook_delete"
)

var defaultResourceTypes = []string{"Issue", "Comment", "Project"}

func (t *Toolset) webhookTools() []Registration {
	return []Registration{
		{
			Name: ToolWebhookCreate,
			Schema: mcp.NewTool(ToolWebhookCreate,
				mcp.WithDescription("Register a Linear webhook, e.g. pointing at this server's /webhooks/linear"),
				mcp.WithString("url", mcp.Required(), mcp.Description("Delivery URL")),
				mcp.WithString("teamKey", mcp.Description("Limit deliveries to one team")),
				mcp.WithBoolean("allPublicTeams", mcp.Description("Deliver for every public team (ignored when teamKey is set)")),
				mcp.WithArray("resourceTypes", mcp.WithStringItems(), mcp.Description("Resource types; defaults to Issue, Comment and Project")),
				mcp.WithBoolean("enabled", mcp.Description("Whether the webhook starts enabled (default true)")),
			),
			Handler: t.webhookCreate,
		},
		{
			Name: ToolWebhookDelete,
			Schema: mcp.NewTool(ToolWebhookDelete,
				mcp.WithDescription("Delete a Linear webhook"),
				mcp.WithString("id", mcp.Required(), mcp.Description("Webhook ID"))),
			Handler: t.webhookDelete,
		},
	}
}

func (t *Toolset) webhookCreate(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	url, err := requiredString(args, "url")
	if err != nil {
		return nil, err
	}
	types, err := stringsArg(args, "resourceTypes")
	if err != nil {
		return nil, err
	}
	if len(types) == 0 {
		types = defaultResourceTypes
	}
	input := map[string]any{
		"url":           url,
		"enabled":       boolArg(args, "enabled", true),
		"resourceTypes": types,
	}
	allPublic := boolArg(args, "allPublicTeams", false)
	if key := stringArg(args, "teamKey"); key != "" && !allPublic {
		teamID, err := t.resolver.TeamID(ctx, key)
		if err != nil {
			return nil, err
		}
		input["teamId"] = teamID
	} else {
		input["allPublicTeams"] = allPublic
	}

	var data linear.WebhookCreateData
	if err := t.q.Query(ctx, linear.MutationWebhookCreate, map[string]any{"input": input}, &data); err != nil {
		return nil, err
	}
	if !data.WebhookCreate.Success || data.WebhookCreate.Webhook == nil {
		return nil, errors.New("linear rejected webhook creation")
	}
	return success(data.WebhookCreate.Webhook), nil
}

func (t *Toolset) webhookDelete(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	id, err := requiredString(args, "id")
	if err != nil {
		return nil, err
	}
	var data linear.WebhookDeleteData
	if err := t.q.Query(ctx, linear.MutationWebhookDelete, map[string]any{"id": id}, &data); err != nil {
		return nil, err
	}
	return success(map[string]any{"id": id, "deleted": data.WebhookDelete.Success}), nil
}
