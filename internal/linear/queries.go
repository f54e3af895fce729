package linear

import "regexp"

// GraphQL documents. Every document is named so logs and the test server can
// tell them apart.
const (
	QueryTeamByKey = `
query TeamByKey($key: String!) { teams(filter: { key: { eq: $key } }) { nodes { id key name } } }`

	QueryTeams = `
query Teams { teams { nodes { id key name } } }`

	QueryUserByEmail = `
query UserByEmail($email: String!) { users(filter: { email: { eq: $email } }) { nodes { id name email } } }`

	QueryUsers = `
query Users { users { nodes { id name email } } }`

	QueryIssueTeam = `
query IssueTeam($id: String!) { issue(id: $id) { id identifier team { id key } } }`

	QueryIssueByTeamNumber = `
query IssueByTeamNumber($teamId: ID!, $number: Float!) {
	issues(filter: { team: { id: { eq: $teamId } }, number: { eq: $number } }) { nodes { id identifier team { id key } } }
}`

	QueryIssueDetail = `
query IssueDetail($id: String!) {
	issue(id: $id) {
		id identifier title description priority dueDate url
		state { id name type }
		assignee { id name email }
		team { id key name }
		project { id name }
		labels { nodes { id name } }
		createdAt updatedAt
	}
}`

	QueryIssues = `
query Issues(
	$teamId: ID, $assigneeId: ID,
	$updatedAfter: DateTimeOrDuration, $updatedBefore: DateTimeOrDuration,
	$createdAfter: DateTimeOrDuration, $createdBefore: DateTimeOrDuration
) {
	issues(
		filter: {
			team: { id: { eq: $teamId } }
			assignee: { id: { eq: $assigneeId } }
			updatedAt: { gte: $updatedAfter, lte: $updatedBefore }
			createdAt: { gte: $createdAfter, lte: $createdBefore }
		}
	) {
		nodes {
			id identifier title priority
			state { id name type }
			assignee { id name email }
			project { id name }
			labels { nodes { id name } }
			createdAt updatedAt
		}
	}
}`

	QueryWorkflowStates = `
query WorkflowStates($teamId: ID!) { workflowStates(filter: { team: { id: { eq: $teamId } } }) { nodes { id name type } } }`

	QueryProjects = `
query Projects($teamId: ID!) { projects(filter: { accessibleTeams: { some: { id: { eq: $teamId } } } }) { nodes { id name } } }`

	QueryIssueLabels = `
query IssueLabels($teamId: ID) { issueLabels(filter: { team: { id: { eq: $teamId } } }) { nodes { id name } } }`

	MutationIssueCreate = `
mutation IssueCreate($input: IssueCreateInput!) {
	issueCreate(input: $input) { success issue { id identifier title url } }
}`

	MutationIssueUpdate = `
mutation IssueUpdate($id: String!, $input: IssueUpdateInput!) {
	issueUpdate(id: $id, input: $input) { success issue { id identifier title url } }
}`

	MutationIssueDelete = `
mutation IssueDelete($id: String!) { issueDelete(id: $id) { success } }`

	MutationCommentCreate = `
mutation CommentCreate($input: CommentCreateInput!) { commentCreate(input: $input) { success comment { id url } } }`

	MutationWebhookCreate = `
mutation WebhookCreate($input: WebhookCreateInput!) {
	webhookCreate(input: $input) { success webhook { id enabled url } }
}`

	MutationWebhookDelete = `
mutation WebhookDelete($id: String!) { webhookDelete(id: $id) { success } }`
)

var operationNameRe = regexp.MustCompile(`^\s*(?:query|mutation)\s+([A-Za-z_][A-Za-z0-9_]*)`)

// OperationName extracts the operation name of a named GraphQL document.
func OperationName(doc string) string {
	m := operationNameRe.FindStringSubmatch(doc)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}
