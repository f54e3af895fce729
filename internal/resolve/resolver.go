// Package resolve turns human references (issue keys, team keys, emails,
// state names, project and label names) into the canonical IDs Linear
// requires.
//
// Every lookup goes to Linear; nothing is cached across calls. Lookups that
// depend on the issue's team go through a Call, which fetches that team at
// most once.
package resolve

import (
	"context"
	"strings"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"linearmcp/internal/linear"
)

// Querier is the Remote Data Source contract: a named GraphQL document plus
// variables, decoded into out.
type Querier interface {
	Query(ctx context.Context, query string, vars map[string]any, out any) error
}

// Resolver resolves references against Linear.
type Resolver struct {
	q      Querier
	Logger logrus.FieldLogger
}

// New returns a resolver backed by q.
func New(q Querier) *Resolver {
	return &Resolver{q: q}
}

func (r *Resolver) logger() logrus.FieldLogger {
	if r.Logger != nil {
		return r.Logger
	}
	return logrus.StandardLogger()
}

// IssueID resolves an issue reference. Canonical IDs are returned unchanged
// without a round trip; a wrong ID surfaces when the mutation fails.
func (r *Resolver) IssueID(ctx context.Context, ref string) (string, error) {
	c := Classify(ref)
	switch c.Kind {
	case Canonical:
		return ref, nil
	case CompoundKey:
		teamID, err := r.TeamID(ctx, c.TeamKey)
		if err != nil {
			return "", err
		}
		return r.issueByNumber(ctx, c, teamID)
	default:
		// Alias fallback: some valid Linear IDs do not match the UUID shape,
		// so the raw string is tried as an ID before giving up.
		issue, err := r.lookupIssue(ctx, ref)
		if err != nil {
			return "", err
		}
		return issue.ID, nil
	}
}

// issueByNumber looks up the issue numbered c.Number in an already resolved team.
func (r *Resolver) issueByNumber(ctx context.Context, c Reference, teamID string) (string, error) {
	var data linear.IssuesData
	vars := map[string]any{"teamId": teamID, "number": c.Number}
	if err := r.q.Query(ctx, linear.QueryIssueByTeamNumber, vars, &data); err != nil {
		return "", err
	}
	issue, ok := data.Issues.First()
	if !ok {
		return "", notFound(KindIssue, c.Raw)
	}
	r.logger().WithFields(logrus.Fields{"ref": c.Raw, "id": issue.ID}).Debug("resolved issue key")
	return issue.ID, nil
}

func (r *Resolver) lookupIssue(ctx context.Context, ref string) (*linear.Issue, error) {
	var data linear.IssueData
	if err := r.q.Query(ctx, linear.QueryIssueTeam, map[string]any{"id": ref}, &data); err != nil {
		if upstreamNotFound(err) {
			return nil, notFound(KindIssue, ref)
		}
		return nil, err
	}
	if data.Issue == nil || data.Issue.ID == "" {
		return nil, notFound(KindIssue, ref)
	}
	return data.Issue, nil
}

// TeamID resolves a team key by exact, case-sensitive match.
func (r *Resolver) TeamID(ctx context.Context, key string) (string, error) {
	var data linear.TeamsData
	if err := r.q.Query(ctx, linear.QueryTeamByKey, map[string]any{"key": key}, &data); err != nil {
		return "", err
	}
	team, ok := data.Teams.First()
	if !ok {
		return "", notFound(KindTeam, key)
	}
	return team.ID, nil
}

// UserIDByEmail resolves a user by exact email. Callers only invoke it when
// an email was supplied.
func (r *Resolver) UserIDByEmail(ctx context.Context, email string) (string, error) {
	var data linear.UsersData
	if err := r.q.Query(ctx, linear.QueryUserByEmail, map[string]any{"email": email}, &data); err != nil {
		return "", err
	}
	user, ok := data.Users.First()
	if !ok {
		return "", notFound(KindUser, email)
	}
	return user.ID, nil
}

// States lists the workflow states of a team.
func (r *Resolver) States(ctx context.Context, teamID string) ([]linear.WorkflowState, error) {
	var data linear.WorkflowStatesData
	if err := r.q.Query(ctx, linear.QueryWorkflowStates, map[string]any{"teamId": teamID}, &data); err != nil {
		return nil, err
	}
	return data.WorkflowStates.Nodes, nil
}

// StateID resolves a state alias within a team.
func (r *Resolver) StateID(ctx context.Context, alias, teamID string) (string, error) {
	states, err := r.States(ctx, teamID)
	if err != nil {
		return "", err
	}
	id, ok := MatchState(alias, states)
	if !ok {
		return "", notFound(KindState, alias)
	}
	return id, nil
}

// MatchState matches alias (trimmed, case-insensitive) against state names,
// then against state types. A name match always beats a type match; within a
// pass the first state wins.
func MatchState(alias string, states []linear.WorkflowState) (string, bool) {
	wanted := normalize(alias)
	if wanted == "" {
		return "", false
	}
	if s, ok := lo.Find(states, func(s linear.WorkflowState) bool { return normalize(s.Name) == wanted }); ok {
		return s.ID, true
	}
	if s, ok := lo.Find(states, func(s linear.WorkflowState) bool { return normalize(s.Type) == wanted }); ok {
		return s.ID, true
	}
	return "", false
}

// MatchNames maps each requested name to an ID through the directory,
// preserving input order and duplicates. The first unmatched name fails the
// whole call.
func MatchNames(kind string, names []string, directory []linear.Named) ([]string, error) {
	index := make(map[string]string, len(directory))
	for _, entry := range directory {
		key := normalize(entry.Name)
		if _, seen := index[key]; !seen {
			index[key] = entry.ID
		}
	}
	out := make([]string, 0, len(names))
	for _, name := range names {
		id, ok := index[normalize(name)]
		if !ok {
			return nil, notFound(kind, name)
		}
		out = append(out, id)
	}
	return out, nil
}

// Projects lists the projects a team can access.
func (r *Resolver) Projects(ctx context.Context, teamID string) ([]linear.Named, error) {
	var data linear.ProjectsData
	if err := r.q.Query(ctx, linear.QueryProjects, map[string]any{"teamId": teamID}, &data); err != nil {
		return nil, err
	}
	return data.Projects.Nodes, nil
}

// ProjectID resolves a project by exact (trimmed, case-insensitive) name.
func (r *Resolver) ProjectID(ctx context.Context, name, teamID string) (string, error) {
	dir, err := r.Projects(ctx, teamID)
	if err != nil {
		return "", err
	}
	ids, err := MatchNames(KindProject, []string{name}, dir)
	if err != nil {
		return "", err
	}
	return ids[0], nil
}

// Labels lists issue labels, scoped to a team when teamID is set.
func (r *Resolver) Labels(ctx context.Context, teamID string) ([]linear.Named, error) {
	vars := map[string]any{}
	if teamID != "" {
		vars["teamId"] = teamID
	}
	var data linear.IssueLabelsData
	if err := r.q.Query(ctx, linear.QueryIssueLabels, vars, &data); err != nil {
		return nil, err
	}
	return data.IssueLabels.Nodes, nil
}

// LabelIDs resolves label names, one ID per requested name.
func (r *Resolver) LabelIDs(ctx context.Context, names []string, teamID string) ([]string, error) {
	dir, err := r.Labels(ctx, teamID)
	if err != nil {
		return nil, err
	}
	return MatchNames(KindLabel, names, dir)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
