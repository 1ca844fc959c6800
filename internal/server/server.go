package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"pixelmorph/internal/config"
	"pixelmorph/internal/fsutil"
	"pixelmorph/internal/pipeline"
	"pixelmorph/internal/storage"
)

// Server exposes the morph pipeline over HTTP: uploads, job status,
// result downloads and a live event feed.
type Server struct {
	cfg   *config.Config
	log   *slog.Logger
	pipe  *pipeline.Pipeline
	store *storage.Store
	hub   *hub
}

// New wires a Server to an already-running pipeline.
func New(cfg *config.Config, logger *slog.Logger, pipe *pipeline.Pipeline, store *storage.Store) *Server {
	return &Server{
		cfg:   cfg,
		log:   logger,
		pipe:  pipe,
		store: store,
		hub:   newHub(logger),
	}
}

// Router builds the HTTP route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods("GET")
	r.HandleFunc("/jobs", s.handleJobs).Methods("GET")
	r.HandleFunc("/upload", s.handleUpload).Methods("POST")
	r.HandleFunc("/status/{id}", s.handleStatus).Methods("GET")
	r.HandleFunc("/result/{id}/{kind}", s.handleResult).Methods("GET")
	r.HandleFunc("/cleanup/{id}", s.handleCleanup).Methods("DELETE")
	r.HandleFunc("/stream", s.handleStream).Methods("GET")
	r.HandleFunc("/ws", s.hub.handleWebSocket).Methods("GET")
	return r
}

// Start serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	go s.hub.run(ctx)
	go s.feedHub(ctx)

	srv := &http.Server{
		Addr:    s.cfg.Server.Addr,
		Handler: s.Router(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	s.log.Info("http server listening", "addr", s.cfg.Server.Addr)
	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// feedHub relays pipeline results to the websocket hub.
func (s *Server) feedHub(ctx context.Context) {
	results, unsub := s.pipe.Subscribe()
	defer unsub()
	for {
		select {
		case <-ctx.Done():
			return
		case res, ok := <-results:
			if !ok {
				return
			}
			payload, err := json.Marshal(jobEvent(res))
			if err == nil {
				s.hub.broadcast <- payload
			}
		}
	}
}

func jobEvent(res pipeline.Result) map[string]any {
	ev := map[string]any{
		"id":     res.Job.ID,
		"type":   string(res.Job.Type),
		"status": "completed",
		"meta":   res.Meta,
	}
	if res.Error != nil {
		ev["status"] = "failed"
		ev["error"] = res.Error.Error()
	}
	return ev
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "time": time.Now().UTC()})
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	jobs, err := s.store.RecentJobs(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

// handleUpload accepts a multipart form with "source" and "target"
// image files plus optional rendering parameters, validates everything
// against the configured limits and queues a morph job.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxUploadSize)
	if err := r.ParseMultipartForm(s.cfg.Server.MaxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}

	params, err := s.paramsFromForm(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id := newJobID()
	srcPath, err := s.saveUpload(r, "source", id)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	dstPath, err := s.saveUpload(r, "target", id)
	if err != nil {
		os.Remove(srcPath)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	job := pipeline.Job{
		ID:         id,
		Type:       pipeline.JobMorph,
		InputPath:  srcPath,
		TargetPath: dstPath,
		Output:     filepath.Join(s.cfg.Paths.DefaultOutput, id),
		Options: map[string]any{
			"size":        params.Size,
			"fps":         params.FPS,
			"duration":    params.Duration,
			"scale":       params.Scale,
			"seed":        params.Seed,
			"format":      params.Format,
			"strategy":    r.FormValue("strategy"),
			"keepFrames":  r.FormValue("keep_frames") == "true",
			"persistHold": r.FormValue("persist_hold") == "true",
		},
	}
	if err := s.pipe.Submit(job); err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	s.log.Info("upload accepted", "job", id, "source", srcPath, "target", dstPath)
	writeJSON(w, http.StatusAccepted, map[string]any{"id": id, "status": "queued"})
}

// paramsFromForm overlays form values on the configured defaults and
// validates the result.
func (s *Server) paramsFromForm(r *http.Request) (config.Params, error) {
	p := s.cfg.Render.Params()
	var err error
	if v := r.FormValue("size"); v != "" {
		if p.Size, err = strconv.Atoi(v); err != nil {
			return p, fmt.Errorf("invalid size: %q", v)
		}
	}
	if v := r.FormValue("fps"); v != "" {
		if p.FPS, err = strconv.Atoi(v); err != nil {
			return p, fmt.Errorf("invalid fps: %q", v)
		}
	}
	if v := r.FormValue("duration"); v != "" {
		if p.Duration, err = strconv.ParseFloat(v, 64); err != nil {
			return p, fmt.Errorf("invalid duration: %q", v)
		}
	}
	if v := r.FormValue("scale"); v != "" {
		if p.Scale, err = strconv.Atoi(v); err != nil {
			return p, fmt.Errorf("invalid scale: %q", v)
		}
	}
	if v := r.FormValue("seed"); v != "" {
		if p.Seed, err = strconv.ParseInt(v, 10, 64); err != nil {
			return p, fmt.Errorf("invalid seed: %q", v)
		}
	}
	if v := r.FormValue("format"); v != "" {
		p.Format = v
	}
	if err := s.cfg.Limits.Validate(p); err != nil {
		return p, err
	}
	return p, nil
}

// saveUpload stores one uploaded image under the upload directory,
// named after the job and form field.
func (s *Server) saveUpload(r *http.Request, field, jobID string) (string, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return "", fmt.Errorf("missing %q file", field)
	}
	defer file.Close()

	if !fsutil.IsImageFile(header.Filename) {
		return "", fmt.Errorf("%q is not a supported image type", header.Filename)
	}

	if err := os.MkdirAll(s.cfg.Paths.UploadDir, 0o755); err != nil {
		return "", err
	}
	dst := filepath.Join(s.cfg.Paths.UploadDir, jobID+"."+field+filepath.Ext(header.Filename))
	out, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	defer out.Close()
	if _, err := io.Copy(out, file); err != nil {
		os.Remove(dst)
		return "", err
	}
	return dst, nil
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	job, err := s.store.Job(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown job: "+id)
		return
	}
	resp := map[string]any{
		"id":      job.ID,
		"type":    job.JobType,
		"status":  job.Status,
		"created": job.CreatedAt,
	}
	if job.StartedAt != nil {
		resp["started"] = job.StartedAt
	}
	if job.CompletedAt != nil {
		resp["completed"] = job.CompletedAt
	}
	if job.Error != "" {
		resp["error"] = job.Error
	}
	if meta, err := s.store.JobMeta(id); err == nil && meta != nil {
		resp["meta"] = meta
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleResult serves one artifact of a completed run. Kind is one of
// animation, final, diagnostic or mapping.
func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	run, err := s.store.RunForJob(vars["id"])
	if err != nil {
		writeError(w, http.StatusNotFound, "no completed run for job: "+vars["id"])
		return
	}

	var path string
	switch vars["kind"] {
	case "animation":
		path = run.AnimationPath
	case "final":
		path = run.FinalImagePath
	case "diagnostic":
		path = run.DiagnosticPath
	case "mapping":
		path = run.MappingPath
	case "frames":
		// Frames live next to the animation when the job kept them.
		frames, err := fsutil.ListFrames(filepath.Join(filepath.Dir(run.AnimationPath), "frames"))
		if err != nil || len(frames) == 0 {
			writeError(w, http.StatusNotFound, "no persisted frames for job: "+vars["id"])
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"count": len(frames), "frames": frames})
		return
	default:
		writeError(w, http.StatusBadRequest, "unknown result kind: "+vars["kind"])
		return
	}
	if path == "" {
		writeError(w, http.StatusNotFound, "artifact not available")
		return
	}
	http.ServeFile(w, r, path)
}

// handleCleanup removes a job's artifacts, uploads and records.
func (s *Server) handleCleanup(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	job, err := s.store.Job(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown job: "+id)
		return
	}

	if job.OutputPath != "" {
		os.RemoveAll(job.OutputPath)
	}
	for _, p := range []string{job.SourcePath, job.TargetPath} {
		if p != "" {
			os.Remove(p)
		}
	}
	if err := s.store.DeleteJob(id); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.log.Info("job cleaned up", "job", id)
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "status": "deleted"})
}

// handleStream is a server-sent-events feed of job completions.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher.Flush()

	results, unsub := s.pipe.Subscribe()
	defer unsub()

	for {
		select {
		case <-r.Context().Done():
			return
		case res, ok := <-results:
			if !ok {
				return
			}
			payload, err := json.Marshal(jobEvent(res))
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: job\ndata: %s\n\n", payload)
			flusher.Flush()
		}
	}
}

func newJobID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("job-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}
