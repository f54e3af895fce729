package linear

// Connection is the `nodes` wrapper Linear uses for every list.
type Connection[T any] struct {
	Nodes []T `json:"nodes"`
}

// First returns the first node, if any.
func (c Connection[T]) First() (T, bool) {
	var zero T
	if len(c.Nodes) == 0 {
		return zero, false
	}
	return c.Nodes[0], true
}

type Team struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Name string `json:"name,omitempty"`
}

type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type WorkflowState struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

// Named is any directory record matched by display name (projects, labels).
type Named struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Issue struct {
	ID          string             `json:"id"`
	Identifier  string             `json:"identifier"`
	Title       string             `json:"title"`
	Description string             `json:"description,omitempty"`
	Priority    *float64           `json:"priority,omitempty"`
	DueDate     string             `json:"dueDate,omitempty"`
	URL         string             `json:"url,omitempty"`
	State       *WorkflowState     `json:"state,omitempty"`
	Assignee    *User              `json:"assignee,omitempty"`
	Team        *Team              `json:"team,omitempty"`
	Project     *Named             `json:"project,omitempty"`
	Labels      *Connection[Named] `json:"labels,omitempty"`
	CreatedAt   string             `json:"createdAt,omitempty"`
	UpdatedAt   string             `json:"updatedAt,omitempty"`
}

type Webhook struct {
	ID      string `json:"id"`
	Enabled bool   `json:"enabled"`
	URL     string `json:"url"`
}

type Comment struct {
	ID  string `json:"id"`
	URL string `json:"url,omitempty"`
}

// Payload shapes for each document.

type TeamsData struct {
	Teams Connection[Team] `json:"teams"`
}

type UsersData struct {
	Users Connection[User] `json:"users"`
}

type IssueData struct {
	Issue *Issue `json:"issue"`
}

type IssuesData struct {
	Issues Connection[Issue] `json:"issues"`
}

type WorkflowStatesData struct {
	WorkflowStates Connection[WorkflowState] `json:"workflowStates"`
}

type ProjectsData struct {
	Projects Connection[Named] `json:"projects"`
}

type IssueLabelsData struct {
	IssueLabels Connection[Named] `json:"issueLabels"`
}

type IssuePayload struct {
	Success bool   `json:"success"`
	Issue   *Issue `json:"issue"`
}

type IssueCreateData struct {
	IssueCreate IssuePayload `json:"issueCreate"`
}

type IssueUpdateData struct {
	IssueUpdate IssuePayload `json:"issueUpdate"`
}

type IssueDeleteData struct {
	IssueDelete struct {
		Success bool `json:"success"`
	} `json:"issueDelete"`
}

type CommentCreateData struct {
	CommentCreate struct {
		Success bool     `json:"success"`
		Comment *Comment `json:"comment"`
	} `json:"commentCreate"`
}

type WebhookCreateData struct {
	WebhookCreate struct {
		Success bool     `json:"success"`
		Webhook *Webhook `json:"webhook"`
	} `json:"webhookCreate"`
}

type WebhookDeleteData struct {
	WebhookDelete struct {
		Success bool `json:"success"`
	} `json:"webhookDelete"`
}
