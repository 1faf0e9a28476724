package pullsvc

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
)

// Error is the JSON envelope every error response uses:
// {"status":"error","msg":"…"}.
type Error struct {
	Status string `json:"status"`
	Msg    string `json:"msg"`
}

// FileDescriptor is the wire shape of one leased/pulled file.
type FileDescriptor struct {
	ID     string `json:"id"`
	PV     string `json:"pv"`
	Name   string `json:"name"`
	Size   int64  `json:"size"`
	SHA256 string `json:"sha256"`
	URL    string `json:"url"`
}

// API exposes the Pull Service's lease/confirm/scan operations over
// HTTP/JSON.
type API struct {
	store   *Store
	token   string // empty disables the Authorization check
	Handler http.Handler
}

// New builds an API around store. token, if non-empty, is required as a
// `Bearer <token>` Authorization header on every request.
func New(store *Store, token string) *API {
	api := &API{store: store, token: token}
	router := httprouter.New()
	router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, "404 - unknown route", http.StatusNotFound)
	})

	router.POST("/lease-files", api.requireAuth(api.leaseFilesHandler))
	router.POST("/confirm-download", api.requireAuth(api.confirmDownloadHandler))
	router.POST("/pull-batch", api.requireAuth(api.pullBatchHandler))
	router.GET("/scan", api.requireAuth(api.scanHandler))
	router.GET("/agent/pull", api.requireAuth(api.agentPullHandler))
	router.POST("/agent/pull", api.requireAuth(api.agentPullHandler))
	router.GET("/download/:id", api.requireAuth(api.downloadHandler))

	api.Handler = router
	return api
}

// requireAuth wraps h with the configured Bearer-token check. An
// empty configured token means the server is unauthenticated, matching the
// "otherwise unauthenticated" clause.
func (api *API) requireAuth(h httprouter.Handle) httprouter.Handle {
	if api.token == "" {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") || strings.TrimPrefix(auth, "Bearer ") != api.token {
			writeError(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		h(w, r, ps)
	}
}

func writeError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(Error{Status: "error", Msg: msg})
}

func writeJSON(w http.ResponseWriter, obj interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(obj); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}

func descriptorOf(f FileRecord) FileDescriptor {
	return FileDescriptor{
		ID:     f.ID,
		PV:     f.PV,
		Name:   f.Name,
		Size:   f.Size,
		SHA256: f.SHA256,
		URL:    "/download/" + f.ID,
	}
}

type leaseRequest struct {
	Limit      int      `json:"limit"`
	Lotes      []string `json:"lotes"`
	TTLSeconds int      `json:"ttl_seconds"`
}

type leaseResponse struct {
	LeaseID string           `json:"lease_id"`
	Files   []FileDescriptor `json:"files"`
}

func (api *API) leaseFilesHandler(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req leaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "bad params: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Limit <= 0 || req.TTLSeconds <= 0 {
		writeError(w, "bad params: limit and ttl_seconds must be positive", http.StatusBadRequest)
		return
	}

	leaseID, files, err := api.store.Lease(req.Limit, req.Lotes, time.Duration(req.TTLSeconds)*time.Second)
	if err != nil {
		writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	resp := leaseResponse{LeaseID: leaseID, Files: make([]FileDescriptor, 0, len(files))}
	for _, f := range files {
		resp.Files = append(resp.Files, descriptorOf(f))
	}
	writeJSON(w, resp)
}

type confirmRequest struct {
	LeaseID string   `json:"lease_id"`
	OKIDs   []string `json:"ok_ids"`
	FailIDs []string `json:"fail_ids"`
}

type confirmResponse struct {
	Confirmed int `json:"confirmed"`
	Rejected  int `json:"rejected"`
}

func (api *API) confirmDownloadHandler(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "bad params: "+err.Error(), http.StatusBadRequest)
		return
	}
	confirmed, rejected, err := api.store.Confirm(req.LeaseID, req.OKIDs, req.FailIDs)
	if err != nil {
		writeError(w, err.Error(), http.StatusConflict)
		return
	}
	writeJSON(w, confirmResponse{Confirmed: confirmed, Rejected: rejected})
}

// pullBatchHandler implements the eager /pull-batch variant: it selects the
// same way /lease-files does, but marks files downloaded immediately
// instead of leaving them leased pending a confirm. It exists
// for agents that pull over a medium (e.g. a zip export) with no separate
// confirm step of their own.
func (api *API) pullBatchHandler(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req leaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "bad params: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Limit <= 0 {
		writeError(w, "bad params: limit must be positive", http.StatusBadRequest)
		return
	}
	ttl := time.Duration(req.TTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = time.Minute
	}

	leaseID, files, err := api.store.Lease(req.Limit, req.Lotes, ttl)
	if err != nil {
		writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	ids := make([]string, 0, len(files))
	for _, f := range files {
		ids = append(ids, f.ID)
	}
	if _, _, err := api.store.Confirm(leaseID, ids, nil); err != nil {
		writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	resp := leaseResponse{LeaseID: leaseID, Files: make([]FileDescriptor, 0, len(files))}
	for _, f := range files {
		resp.Files = append(resp.Files, descriptorOf(f))
	}
	writeJSON(w, resp)
}

type scanResponse struct {
	Input  []string     `json:"input"`
	Output []scanOutput `json:"output"`
}

type scanOutput struct {
	Name  string    `json:"name"`
	Lote  string    `json:"lote"`
	Mtime time.Time `json:"mtime"`
}

func (api *API) scanHandler(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	files := api.store.Snapshot()
	resp := scanResponse{Input: []string{}, Output: make([]scanOutput, 0, len(files))}
	for _, f := range files {
		var mtime time.Time
		if fi, err := os.Stat(f.Path); err == nil {
			mtime = fi.ModTime()
		}
		resp.Output = append(resp.Output, scanOutput{Name: f.Name, Lote: f.Lote, Mtime: mtime})
	}
	writeJSON(w, resp)
}

// agentPullHandler accepts an async pull request and returns 202
// immediately; the actual transfer is the caller's Pull Agent
// process, not this service, so there is nothing further to orchestrate
// here beyond validating the request shape.
func (api *API) agentPullHandler(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req struct {
		Limit     int      `json:"limit"`
		Mode      string   `json:"mode"`
		Lotes     []string `json:"lotes"`
		DateFrom  string   `json:"date_from"`
		DateTo    string   `json:"date_to"`
		SinceDays int      `json:"since_days"`
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	if req.Mode != "" && req.Mode != "lease" && req.Mode != "direct" {
		writeError(w, "bad params: mode must be lease or direct", http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (api *API) downloadHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")
	f, ok := api.store.Get(id)
	if !ok {
		writeError(w, fmt.Sprintf("unknown file id %q", id), http.StatusNotFound)
		return
	}
	http.ServeFile(w, r, f.Path)
}
