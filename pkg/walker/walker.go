// Package walker traverses a ClickUp workspace: spaces, the lists inside
// them (folders flattened away) and the paginated tasks of each list.
package walker

import (
	"context"
	"fmt"
	"iter"

	"cufetch/pkg/clickup"
	"cufetch/pkg/logger"
	"cufetch/pkg/ratelimit"
)

// API is the subset of the ClickUp client the walker needs
type API interface {
	Spaces(ctx context.Context, teamID string) ([]clickup.Space, error)
	FolderlessLists(ctx context.Context, spaceID string) ([]clickup.List, error)
	Folders(ctx context.Context, spaceID string) ([]clickup.Folder, error)
	TasksPage(ctx context.Context, listID string, page int) (*clickup.TasksPage, error)
}

// Walker enumerates the workspace hierarchy
type Walker struct {
	api    API
	pacer  ratelimit.Pacer
	logger logger.Logger
}

// New creates a walker. The pacer is applied between task page fetches.
func New(api API, pacer ratelimit.Pacer, log logger.Logger) *Walker {
	if pacer == nil {
		pacer = ratelimit.NoDelay{}
	}
	if log == nil {
		log = logger.GetLogger()
	}
	return &Walker{api: api, pacer: pacer, logger: log}
}

// ListSpaces returns space id to space name for a workspace
func (w *Walker) ListSpaces(ctx context.Context, workspaceID string) (map[string]string, error) {
	spaces, err := w.Spaces(ctx, workspaceID)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]string, len(spaces))
	for _, s := range spaces {
		byID[s.ID] = s.Name
	}
	return byID, nil
}

// Spaces returns the spaces of a workspace in API order
func (w *Walker) Spaces(ctx context.Context, workspaceID string) ([]clickup.Space, error) {
	spaces, err := w.api.Spaces(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list spaces of workspace %s: %w", workspaceID, err)
	}

	w.logger.DebugWithFields("Listed spaces", map[string]interface{}{
		"workspace_id": workspaceID,
		"count":        len(spaces),
	})
	return spaces, nil
}

// ListListsInSpace returns the folder-less lists of a space followed by the
// lists of each folder in folder order
func (w *Walker) ListListsInSpace(ctx context.Context, spaceID string) ([]clickup.List, error) {
	bare, err := w.api.FolderlessLists(ctx, spaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list lists of space %s: %w", spaceID, err)
	}

	folders, err := w.api.Folders(ctx, spaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list folders of space %s: %w", spaceID, err)
	}

	lists := make([]clickup.List, 0, len(bare))
	lists = append(lists, bare...)
	for _, f := range folders {
		lists = append(lists, f.Lists...)
	}

	w.logger.DebugWithFields("Listed lists", map[string]interface{}{
		"space_id": spaceID,
		"bare":     len(bare),
		"folders":  len(folders),
		"total":    len(lists),
	})
	return lists, nil
}

// IterateTasks lazily yields every task of a list, closed ones included.
// Pages are requested from 0 until one reports last_page, or omits it.
// The pacer runs between page fetches, never before the first. A failed
// page is yielded once as an error and iteration stops.
func (w *Walker) IterateTasks(ctx context.Context, listID string) iter.Seq2[clickup.Task, error] {
	return func(yield func(clickup.Task, error) bool) {
		for page := 0; ; page++ {
			if page > 0 {
				if err := w.pacer.Pause(ctx); err != nil {
					yield(clickup.Task{}, err)
					return
				}
			}

			resp, err := w.api.TasksPage(ctx, listID, page)
			if err != nil {
				yield(clickup.Task{}, fmt.Errorf("failed to fetch page %d of list %s: %w", page, listID, err))
				return
			}

			for _, task := range resp.Tasks {
				if !yield(task, nil) {
					return
				}
			}

			if resp.IsLast() {
				return
			}
		}
	}
}

// CollectTasks drains IterateTasks. On error the tasks read so far are returned with it.
func (w *Walker) CollectTasks(ctx context.Context, listID string) ([]clickup.Task, error) {
	var tasks []clickup.Task
	for task, err := range w.IterateTasks(ctx, listID) {
		if err != nil {
			return tasks, err
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}
