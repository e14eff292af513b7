// Package clickup provides a client for the ClickUp v2 REST API.
//
// The client sends every request with the personal token in the
// Authorization header and waits on an optional requests-per-minute ceiling
// first. Any transport failure or non-2xx status comes back as an
// *errors.HTTPError; there is no automatic retry.
//
// Basic Usage:
//
//	client := clickup.New(clickup.Options{
//	    Token:   cfg.ClickUp.Token,
//	    TeamID:  cfg.ClickUp.TeamID,
//	    BaseURL: cfg.ClickUp.APIURL,
//	    Ceiling: ratelimit.NewCeiling(85),
//	})
//
//	spaces, err := client.Spaces(ctx, client.TeamID())
//	page, err := client.TasksPage(ctx, listID, 0)
//	task, err := client.Task(ctx, taskID)
//
//	resp, err := client.Open(ctx, attachment.URL)
//	defer resp.Body.Close()
package clickup
