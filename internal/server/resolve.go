package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"linearmcp/internal/resolve"
)

func registerResolve(api huma.API, r *resolve.Resolver) {
	huma.Register(api, huma.Operation{
		OperationID: "resolve-classify",
		Method:      http.MethodGet,
		Path:        "/resolve/classify",
		Summary:     "Classify a reference without calling Linear",
		Tags:        []string{"resolve"},
	}, func(ctx context.Context, input *struct {
		Ref string `query:"ref" required:"true"`
	}) (*ClassifyResponse, error) {
		c := resolve.Classify(input.Ref)
		out := &ClassifyResponse{}
		out.Body = ClassifyResult{Ref: c.Raw, Kind: c.Kind.String(), TeamKey: c.TeamKey, Number: c.Number}
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "resolve-issue",
		Method:      http.MethodGet,
		Path:        "/resolve/issue",
		Summary:     "Resolve an issue ID or key",
		Tags:        []string{"resolve"},
	}, func(ctx context.Context, input *struct {
		Ref string `query:"ref" required:"true" example:"ENG-123"`
	}) (*ResolvedResponse, error) {
		id, err := r.IssueID(ctx, input.Ref)
		return resolved(resolve.KindIssue, input.Ref, id, err)
	})

	huma.Register(api, huma.Operation{
		OperationID: "resolve-team",
		Method:      http.MethodGet,
		Path:        "/resolve/team",
		Summary:     "Resolve a team key",
		Tags:        []string{"resolve"},
	}, func(ctx context.Context, input *struct {
		Key string `query:"key" required:"true" example:"ENG"`
	}) (*ResolvedResponse, error) {
		id, err := r.TeamID(ctx, input.Key)
		return resolved(resolve.KindTeam, input.Key, id, err)
	})

	huma.Register(api, huma.Operation{
		OperationID: "resolve-user",
		Method:      http.MethodGet,
		Path:        "/resolve/user",
		Summary:     "Resolve a user by email",
		Tags:        []string{"resolve"},
	}, func(ctx context.Context, input *struct {
		Email string `query:"email" required:"true"`
	}) (*ResolvedResponse, error) {
		id, err := r.UserIDByEmail(ctx, input.Email)
		return resolved(resolve.KindUser, input.Email, id, err)
	})

	huma.Register(api, huma.Operation{
		OperationID: "resolve-state",
		Method:      http.MethodGet,
		Path:        "/resolve/state",
		Summary:     "Resolve a workflow state name or type within a team",
		Tags:        []string{"resolve"},
	}, func(ctx context.Context, input *struct {
		TeamKey string `query:"team_key" required:"true"`
		Alias   string `query:"alias" required:"true" example:"In Progress"`
	}) (*ResolvedResponse, error) {
		teamID, err := r.TeamID(ctx, input.TeamKey)
		if err != nil {
			return nil, handleError(err)
		}
		id, err := r.StateID(ctx, input.Alias, teamID)
		return resolved(resolve.KindState, input.Alias, id, err)
	})

	huma.Register(api, huma.Operation{
		OperationID: "resolve-project",
		Method:      http.MethodGet,
		Path:        "/resolve/project",
		Summary:     "Resolve a project name within a team",
		Tags:        []string{"resolve"},
	}, func(ctx context.Context, input *struct {
		TeamKey string `query:"team_key" required:"true"`
		Name    string `query:"name" required:"true"`
	}) (*ResolvedResponse, error) {
		teamID, err := r.TeamID(ctx, input.TeamKey)
		if err != nil {
			return nil, handleError(err)
		}
		id, err := r.ProjectID(ctx, input.Name, teamID)
		return resolved(resolve.KindProject, input.Name, id, err)
	})

	huma.Register(api, huma.Operation{
		OperationID: "resolve-labels",
		Method:      http.MethodPost,
		Path:        "/resolve/labels",
		Summary:     "Resolve label names, one ID per name in input order",
		Tags:        []string{"resolve"},
	}, func(ctx context.Context, input *struct {
		Body LabelsRequest
	}) (*LabelsResponse, error) {
		var teamID string
		if input.Body.TeamKey != "" {
			id, err := r.TeamID(ctx, input.Body.TeamKey)
			if err != nil {
				return nil, handleError(err)
			}
			teamID = id
		}
		ids, err := r.LabelIDs(ctx, input.Body.Names, teamID)
		if err != nil {
			return nil, handleError(err)
		}
		out := &LabelsResponse{}
		out.Body = LabelsResult{TeamID: teamID, Names: input.Body.Names, IDs: ids}
		return out, nil
	})
}

func resolved(kind, ref, id string, err error) (*ResolvedResponse, error) {
	if err != nil {
		return nil, handleError(err)
	}
	return &ResolvedResponse{Body: Resolved{Kind: kind, Ref: ref, ID: id}}, nil
}
