// Package clickuptest provides an in-memory ClickUp API for tests.
package clickuptest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"cufetch/pkg/clickup"
	"cufetch/pkg/logger"
)

// Token is the token the fake server accepts
const Token = "pk_test_token"

// Server is a fake ClickUp API backed by maps the test fills in
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	teams    []clickup.Team
	spaces   map[string][]clickup.Space
	lists    map[string][]clickup.List
	folders  map[string][]clickup.Folder
	pages    map[string][][]clickup.Task
	noLast   map[string]bool
	details  map[string]clickup.Task
	raw      map[string]json.RawMessage
	files    map[string][]byte
	failures map[string]int
	requests []string
}

// NewServer starts a fake server that is closed when the test ends
func NewServer(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		spaces:   make(map[string][]clickup.Space),
		lists:    make(map[string][]clickup.List),
		folders:  make(map[string][]clickup.Folder),
		pages:    make(map[string][][]clickup.Task),
		noLast:   make(map[string]bool),
		details:  make(map[string]clickup.Task),
		raw:      make(map[string]json.RawMessage),
		files:    make(map[string][]byte),
		failures: make(map[string]int),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

// Client returns an API client pointed at the fake server
func (s *Server) Client(teamID string) *clickup.Client {
	return clickup.New(clickup.Options{
		Token:           Token,
		TeamID:          teamID,
		BaseURL:         s.URL,
		Timeout:         5 * time.Second,
		DownloadTimeout: 5 * time.Second,
		Logger:          logger.NewNopLogger(),
	})
}

// AddTeam registers a workspace
func (s *Server) AddTeam(team clickup.Team) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teams = append(s.teams, team)
}

// AddSpace registers a space under a workspace
func (s *Server) AddSpace(teamID string, space clickup.Space) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spaces[teamID] = append(s.spaces[teamID], space)
}

// AddList registers a folder-less list in a space
func (s *Server) AddList(spaceID string, list clickup.List) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists[spaceID] = append(s.lists[spaceID], list)
}

// AddFolder registers a folder with its lists in a space
func (s *Server) AddFolder(spaceID string, folder clickup.Folder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.folders[spaceID] = append(s.folders[spaceID], folder)
}

// SetTaskPages sets the pages returned for a list. The last page is flagged
// last_page=true unless OmitLastPage was called for the list.
func (s *Server) SetTaskPages(listID string, pages ...[]clickup.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages[listID] = pages
}

// OmitLastPage makes every page of the list leave out the last_page field
func (s *Server) OmitLastPage(listID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.noLast[listID] = true
}

// SetTask sets the detail returned for a task id
func (s *Server) SetTask(task clickup.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.details[task.ID] = task
}

// SetTaskJSON serves body verbatim as the detail of a task id, for
// payloads the typed models cannot produce
func (s *Server) SetTaskJSON(id, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.raw[id] = json.RawMessage(body)
}

// AddFile serves body at /files/{name} and returns its URL
func (s *Server) AddFile(name string, body []byte) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[name] = body
	return s.FileURL(name)
}

// FileURL returns the URL a file is served at
func (s *Server) FileURL(name string) string {
	return s.URL + "/files/" + name
}

// Fail makes requests to path answer with status. Zero clears it.
func (s *Server) Fail(path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		delete(s.failures, path)
		return
	}
	s.failures[path] = status
}

// Requests returns the paths requested so far, with query strings
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.requests))
	copy(out, s.requests)
	return out
}

// CountRequests counts requests whose path starts with prefix
func (s *Server) CountRequests(prefix string) int {
	n := 0
	for _, r := range s.Requests() {
		if strings.HasPrefix(r, prefix) {
			n++
		}
	}
	return n
}

// ResetRequests forgets recorded requests
func (s *Server) ResetRequests() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = nil
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = append(s.requests, r.URL.RequestURI())

	if r.Header.Get("Authorization") != Token {
		writeError(w, http.StatusUnauthorized, "Token invalid")
		return
	}
	if status, ok := s.failures[r.URL.Path]; ok {
		writeError(w, status, "injected failure")
		return
	}

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	switch {
	case len(parts) == 1 && parts[0] == "team":
		writeJSON(w, clickup.TeamsResponse{Teams: s.teams})
	case len(parts) == 3 && parts[0] == "team" && parts[2] == "space":
		spaces, ok := s.spaces[parts[1]]
		if !ok {
			writeError(w, http.StatusNotFound, "Team not found")
			return
		}
		writeJSON(w, clickup.SpacesResponse{Spaces: spaces})
	case len(parts) == 3 && parts[0] == "space" && parts[2] == "list":
		writeJSON(w, clickup.ListsResponse{Lists: orEmpty(s.lists[parts[1]])})
	case len(parts) == 3 && parts[0] == "space" && parts[2] == "folder":
		folders := s.folders[parts[1]]
		if folders == nil {
			folders = []clickup.Folder{}
		}
		writeJSON(w, clickup.FoldersResponse{Folders: folders})
	case len(parts) == 3 && parts[0] == "list" && parts[2] == "task":
		s.writeTaskPage(w, r, parts[1])
	case len(parts) == 2 && parts[0] == "task":
		if body, ok := s.raw[parts[1]]; ok {
			w.Header().Set("Content-Type", "application/json")
			w.Write(body)
			return
		}
		task, ok := s.details[parts[1]]
		if !ok {
			writeError(w, http.StatusNotFound, "Task not found")
			return
		}
		writeJSON(w, task)
	case len(parts) == 2 && parts[0] == "files":
		body, ok := s.files[parts[1]]
		if !ok {
			writeError(w, http.StatusNotFound, "File not found")
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		w.Write(body)
	default:
		writeError(w, http.StatusNotFound, "Route not found")
	}
}

func (s *Server) writeTaskPage(w http.ResponseWriter, r *http.Request, listID string) {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad page")
		return
	}

	pages := s.pages[listID]
	tasks := []clickup.Task{}
	if page < len(pages) {
		tasks = pages[page]
	}

	body := map[string]interface{}{"tasks": tasks}
	if !s.noLast[listID] {
		body["last_page"] = page >= len(pages)-1
	}
	writeJSON(w, body)
}

func orEmpty(lists []clickup.List) []clickup.List {
	if lists == nil {
		return []clickup.List{}
	}
	return lists
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"err": msg, "ECODE": "TEST_" + strconv.Itoa(status)})
}
