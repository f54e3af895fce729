package resolve

import "context"

// Call scopes resolutions to one tool invocation. It remembers the issue and
// team it resolved so the team is fetched at most once, and it must not
// outlive the invocation.
type Call struct {
	r        *Resolver
	issueRef string
	issueID  string
	teamID   string
}

// ForIssue starts a call about an existing issue; the team is derived from
// the issue on first use.
func (r *Resolver) ForIssue(issueRef string) *Call {
	return &Call{r: r, issueRef: issueRef}
}

// ForTeam starts a call whose team is already known (issue creation).
func (r *Resolver) ForTeam(teamID string) *Call {
	return &Call{r: r, teamID: teamID}
}

// IssueID resolves the call's issue reference once.
func (c *Call) IssueID(ctx context.Context) (string, error) {
	if c.issueID != "" {
		return c.issueID, nil
	}
	ref := Classify(c.issueRef)
	if ref.Kind == CompoundKey {
		// The key's team may already be known from an earlier lookup.
		teamID, err := c.TeamID(ctx)
		if err != nil {
			return "", err
		}
		id, err := c.r.issueByNumber(ctx, ref, teamID)
		if err != nil {
			return "", err
		}
		c.issueID = id
		return id, nil
	}
	id, err := c.r.IssueID(ctx, c.issueRef)
	if err != nil {
		return "", err
	}
	c.issueID = id
	return id, nil
}

// TeamID returns the team the call is about, looking it up at most once.
func (c *Call) TeamID(ctx context.Context) (string, error) {
	if c.teamID != "" {
		return c.teamID, nil
	}
	ref := Classify(c.issueRef)
	if ref.Kind == CompoundKey {
		id, err := c.r.TeamID(ctx, ref.TeamKey)
		if err != nil {
			return "", err
		}
		c.teamID = id
		return id, nil
	}
	issue, err := c.r.lookupIssue(ctx, c.issueRef)
	if err != nil {
		return "", err
	}
	if issue.Team == nil || issue.Team.ID == "" {
		return "", notFound("team of issue", c.issueRef)
	}
	if c.issueID == "" {
		c.issueID = issue.ID
	}
	c.teamID = issue.Team.ID
	return c.teamID, nil
}

// StateID applies the ID-or-alias ladder to a workflow state.
func (c *Call) StateID(ctx context.Context, id, alias string) (string, error) {
	return Pick(ctx, id, alias, func(ctx context.Context, name string) (string, error) {
		teamID, err := c.TeamID(ctx)
		if err != nil {
			return "", err
		}
		return c.r.StateID(ctx, name, teamID)
	})
}

// ProjectID applies the ID-or-name ladder to a project.
func (c *Call) ProjectID(ctx context.Context, id, name string) (string, error) {
	return Pick(ctx, id, name, func(ctx context.Context, name string) (string, error) {
		teamID, err := c.TeamID(ctx)
		if err != nil {
			return "", err
		}
		return c.r.ProjectID(ctx, name, teamID)
	})
}

// LabelIDs applies the ID-or-name ladder to a label list.
func (c *Call) LabelIDs(ctx context.Context, ids, names []string) ([]string, error) {
	return PickMany(ctx, ids, names, func(ctx context.Context, names []string) ([]string, error) {
		teamID, err := c.TeamID(ctx)
		if err != nil {
			return nil, err
		}
		return c.r.LabelIDs(ctx, names, teamID)
	})
}
