package clickup

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Team is a ClickUp workspace
type Team struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// TeamsResponse is the body of GET /team
type TeamsResponse struct {
	Teams []Team `json:"teams"`
}

// Space is a top-level grouping inside a workspace
type Space struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SpacesResponse is the body of GET /team/{id}/space
type SpacesResponse struct {
	Spaces []Space `json:"spaces"`
}

// List holds tasks. It belongs to a space directly or through a folder.
type List struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ListsResponse is the body of GET /space/{id}/list
type ListsResponse struct {
	Lists []List `json:"lists"`
}

// Folder groups lists inside a space
type Folder struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Lists []List `json:"lists"`
}

// FoldersResponse is the body of GET /space/{id}/folder
type FoldersResponse struct {
	Folders []Folder `json:"folders"`
}

// Task is a work item. Attachments are only populated by the task detail call.
type Task struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// TasksPage is the body of GET /list/{id}/task
type TasksPage struct {
	Tasks []Task `json:"tasks"`
	// LastPage is nil when the server omits the field
	LastPage *bool `json:"last_page,omitempty"`
}

// IsLast reports whether no further pages follow. A missing flag means last.
func (p *TasksPage) IsLast() bool {
	return p.LastPage == nil || *p.LastPage
}

// Attachment is a file attached to a task
type Attachment struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Filename string `json:"filename"`
	MimeType string `json:"mimetype"`
	URL      string `json:"url"`
	Size     Size   `json:"size"`
}

// IsImage reports whether the attachment has an image/* MIME type
func (a Attachment) IsImage() bool {
	return strings.HasPrefix(a.MimeType, "image/")
}

// FileName returns the name to store the attachment under
func (a Attachment) FileName() string {
	if a.Title != "" {
		return a.Title
	}
	return a.Filename
}

// Size is a byte count that the API sends either as a number or a string.
// Zero means unknown.
type Size int64

// UnmarshalJSON accepts 123, "123" and null. Anything else decodes as
// unknown so a malformed size never fails the whole task.
func (s *Size) UnmarshalJSON(data []byte) error {
	*s = 0
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	if data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return nil
		}
		data = []byte(strings.TrimSpace(str))
	}

	n, err := strconv.ParseFloat(string(data), 64)
	if err != nil || n < 0 {
		return nil
	}
	*s = Size(n)
	return nil
}
