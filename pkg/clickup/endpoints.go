package clickup

import (
	"fmt"
	"net/url"
	"strconv"
)

// teamsPath lists the workspaces visible to the token
func teamsPath() string {
	return "/team"
}

// spacesPath lists the spaces of a workspace
func spacesPath(teamID string) string {
	return fmt.Sprintf("/team/%s/space", url.PathEscape(teamID))
}

// folderlessListsPath lists the lists attached directly to a space
func folderlessListsPath(spaceID string) string {
	return fmt.Sprintf("/space/%s/list", url.PathEscape(spaceID))
}

// foldersPath lists the folders of a space with their embedded lists
func foldersPath(spaceID string) string {
	return fmt.Sprintf("/space/%s/folder", url.PathEscape(spaceID))
}

// tasksPath lists one page of tasks in a list
func tasksPath(listID string) string {
	return fmt.Sprintf("/list/%s/task", url.PathEscape(listID))
}

// tasksQuery asks for a page of tasks, closed ones included
func tasksQuery(page int) url.Values {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("include_closed", "true")
	return q
}

// taskPath fetches a single task with its attachments
func taskPath(taskID string) string {
	return fmt.Sprintf("/task/%s", url.PathEscape(taskID))
}
