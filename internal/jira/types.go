package jira

// Issue is the shaped view of a tracker work item handed to tools and
// the context generator. RenderedDescription carries the server-side
// HTML rendering when the detail endpoint was asked for it.
type Issue struct {
	Key                 string    `json:"key"`
	Summary             string    `json:"summary"`
	Status              string    `json:"status"`
	Assignee            string    `json:"assignee"`
	Priority            string    `json:"priority"`
	Type                string    `json:"type"`
	Updated             string    `json:"updated"`
	Description         string    `json:"description,omitempty"`
	RenderedDescription string    `json:"renderedDescription,omitempty"`
	Comments            []Comment `json:"comments,omitempty"`
}

type Comment struct {
	Author       string `json:"author"`
	Created      string `json:"created"`
	Body         string `json:"body"`
	RenderedBody string `json:"renderedBody,omitempty"`
}

// Transition is one legal status move for an issue.
type Transition struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	To   string `json:"to"`
}

type Project struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Name string `json:"name"`
}

type IssueType struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Subtask bool   `json:"subtask"`
}

type User struct {
	AccountID   string `json:"accountId"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
}

// CreateIssueInput carries the fields for issue creation. Project may
// be empty when the caller resolves a default beforehand.
type CreateIssueInput struct {
	Project     string
	Summary     string
	Description string
	Type        string
}

// Wire shapes for the REST API. Only the fields the client reads.

type searchResponse struct {
	Issues []wireIssue `json:"issues"`
}

type wireIssue struct {
	Key            string      `json:"key"`
	Fields         wireFields  `json:"fields"`
	RenderedFields *wireFields `json:"renderedFields"`
}

type wireFields struct {
	Summary     string        `json:"summary"`
	Description string        `json:"description"`
	Updated     string        `json:"updated"`
	Status      *wireNamed    `json:"status"`
	Priority    *wireNamed    `json:"priority"`
	IssueType   *wireNamed    `json:"issuetype"`
	Assignee    *wireUser     `json:"assignee"`
	Comment     *wireComments `json:"comment"`
}

type wireNamed struct {
	Name string `json:"name"`
}

type wireUser struct {
	AccountID    string `json:"accountId"`
	DisplayName  string `json:"displayName"`
	EmailAddress string `json:"emailAddress"`
}

type wireComments struct {
	Comments []wireComment `json:"comments"`
}

type wireComment struct {
	Author  *wireUser `json:"author"`
	Created string    `json:"created"`
	Body    string    `json:"body"`
}

type wireTransitions struct {
	Transitions []struct {
		ID   string     `json:"id"`
		Name string     `json:"name"`
		To   *wireNamed `json:"to"`
	} `json:"transitions"`
}

type wireProject struct {
	ID         string `json:"id"`
	Key        string `json:"key"`
	Name       string `json:"name"`
	IssueTypes []struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Subtask bool   `json:"subtask"`
	} `json:"issueTypes"`
}

func (w wireIssue) toIssue() Issue {
	is := Issue{
		Key:         w.Key,
		Summary:     w.Fields.Summary,
		Description: w.Fields.Description,
		Updated:     w.Fields.Updated,
	}
	if w.Fields.Status != nil {
		is.Status = w.Fields.Status.Name
	}
	if w.Fields.Priority != nil {
		is.Priority = w.Fields.Priority.Name
	}
	if w.Fields.IssueType != nil {
		is.Type = w.Fields.IssueType.Name
	}
	if w.Fields.Assignee != nil {
		is.Assignee = w.Fields.Assignee.DisplayName
	}
	if w.RenderedFields != nil {
		is.RenderedDescription = w.RenderedFields.Description
	}
	if w.Fields.Comment != nil {
		for i, c := range w.Fields.Comment.Comments {
			cm := Comment{Created: c.Created, Body: c.Body}
			if c.Author != nil {
				cm.Author = c.Author.DisplayName
			}
			if w.RenderedFields != nil && w.RenderedFields.Comment != nil &&
				i < len(w.RenderedFields.Comment.Comments) {
				cm.RenderedBody = w.RenderedFields.Comment.Comments[i].Body
			}
			is.Comments = append(is.Comments, cm)
		}
	}
	return is
}
