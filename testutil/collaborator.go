// Package testutil provides a stand-in for the remote download service.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// VideoURL is the URL the stub collaborator resolves by default
const VideoURL = "https://youtu.be/abc123"

type stubJob struct {
	status    string
	progress  float64
	errMsg    string
	title     string
	variantID string
}

// Collaborator is an in-process fake of the remote download service. Jobs stay
// downloading at 40% until Finish or Fail is called.
type Collaborator struct {
	Server *httptest.Server

	mu      sync.Mutex
	videos  map[string]map[string]any
	jobs    map[string]*stubJob
	nextJob int
	polls   map[string]int
	fetches int
}

// NewCollaborator starts the stub and closes it when the test ends
func NewCollaborator(t *testing.T) *Collaborator {
	c := &Collaborator{
		videos: make(map[string]map[string]any),
		jobs:   make(map[string]*stubJob),
		polls:  make(map[string]int),
	}
	c.AddVideo(VideoURL, "abc123", "A video")

	mux := http.NewServeMux()
	mux.HandleFunc("GET /info", c.info)
	mux.HandleFunc("POST /start_download", c.start)
	mux.HandleFunc("GET /progress", c.progress)
	mux.HandleFunc("GET /download_file", c.downloadFile)
	c.Server = httptest.NewServer(mux)
	t.Cleanup(c.Server.Close)
	return c
}

// URL returns the stub's base URL
func (c *Collaborator) URL() string {
	return c.Server.URL
}

// AddVideo registers a resolvable URL with three formats: 1080p mp4, 720p webm
// and a storyboard with no streams
func (c *Collaborator) AddVideo(url, id, title string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.videos[url] = map[string]any{
		"id":        id,
		"title":     title,
		"thumbnail": "https://i.ytimg.com/vi/" + id + "/hq.jpg",
		"duration":  125,
		"uploader":  "Uploader",
		"formats": []map[string]any{
			{"format_id": "sb0", "ext": "mhtml", "resolution": "48x27", "filesize": nil, "vcodec": "none", "acodec": "none"},
			{"format_id": "f2", "ext": "webm", "resolution": "720p", "filesize": nil, "vcodec": "vp9", "acodec": "opus"},
			{"format_id": "f1", "ext": "mp4", "resolution": "1080p", "filesize": 52428800, "vcodec": "avc1", "acodec": "mp4a"},
		},
	}
}

// Finish marks a job finished with the given title
func (c *Collaborator) Finish(jobID, title string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if job, ok := c.jobs[jobID]; ok {
		job.status, job.progress, job.title = "finished", 1, title
	}
}

// Fail marks a job failed
func (c *Collaborator) Fail(jobID, msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if job, ok := c.jobs[jobID]; ok {
		job.status, job.errMsg = "error", msg
	}
}

// Polls returns how many progress requests a job received
func (c *Collaborator) Polls(jobID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.polls[jobID]
}

// Fetches returns how many artifact downloads were served
func (c *Collaborator) Fetches() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fetches
}

// Variant returns the variant a job was started with
func (c *Collaborator) Variant(jobID string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if job, ok := c.jobs[jobID]; ok {
		return job.variantID
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func (c *Collaborator) info(w http.ResponseWriter, r *http.Request) {
	c.mu.Lock()
	video, ok := c.videos[r.URL.Query().Get("url")]
	c.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "ERROR: Unsupported URL"})
		return
	}
	writeJSON(w, http.StatusOK, video)
}

func (c *Collaborator) start(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL      string `json:"url"`
		FormatID string `json:"format_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" || req.FormatID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Missing 'url' or 'format_id'"})
		return
	}

	c.mu.Lock()
	c.nextJob++
	id := fmt.Sprintf("j%d", c.nextJob)
	c.jobs[id] = &stubJob{status: "downloading", progress: 0.4, variantID: req.FormatID}
	c.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"job_id": id})
}

func (c *Collaborator) progress(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("job_id")
	c.mu.Lock()
	c.polls[id]++
	job, ok := c.jobs[id]
	var body map[string]any
	if ok {
		body = map[string]any{
			"status":           job.status,
			"progress":         job.progress,
			"downloaded_bytes": int(job.progress * 1000),
			"total_bytes":      1000,
			"speed":            2048.5,
			"eta":              3,
			"filename":         nil,
			"error":            nil,
			"title":            nil,
		}
		if job.errMsg != "" {
			body["error"] = job.errMsg
		}
		if job.title != "" {
			body["title"] = job.title
			body["filename"] = job.title + ".mp4"
		}
	}
	c.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Job not found"})
		return
	}
	writeJSON(w, http.StatusOK, body)
}

func (c *Collaborator) downloadFile(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("job_id")
	c.mu.Lock()
	job, ok := c.jobs[id]
	ready := ok && job.status == "finished"
	if ready {
		c.fetches++
	}
	c.mu.Unlock()

	switch {
	case !ok:
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Job not found"})
	case !ready:
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Not ready"})
	default:
		payload := "video-bytes-" + id
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Disposition", `attachment; filename="server-side.mp4"`)
		w.Header().Set("Content-Length", fmt.Sprint(len(payload)))
		w.Write([]byte(payload))
	}
}
