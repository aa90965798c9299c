package projects

import (
	"context"
	"errors"
	"mime"
	"net/http"
	"strconv"

	assetstore "github.com/dalemusser/projecthub/internal/app/store/assets"
	"github.com/dalemusser/projecthub/internal/app/system/authz"
	"github.com/dalemusser/projecthub/internal/app/system/timeouts"
	"github.com/dalemusser/projecthub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// uploadField is the multipart field holding uploaded files.
const uploadField = "file"

func documentIDs(r *http.Request) (pid, aid primitive.ObjectID, err error) {
	if pid, err = primitive.ObjectIDFromHex(chi.URLParam(r, "projectId")); err != nil {
		return
	}
	if id := chi.URLParam(r, "assetId"); id != "" {
		aid, err = primitive.ObjectIDFromHex(id)
	}
	return
}

// ServeDocuments handles GET /api/projects/{projectId}/document.
func (h *Handler) ServeDocuments(w http.ResponseWriter, r *http.Request) {
	pid, _, err := documentIDs(r)
	if err != nil {
		h.ErrLog.LogBadRequest(w, r, "list documents: bad id", err, "")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	list, err := h.Docs.List(ctx, pid)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list documents failed", err, "")
		return
	}
	h.ok(w, r, "list documents", http.StatusOK, list)
}

// HandleUpload handles POST /api/projects/{projectId}/document[/upload].
// Every part named "file" becomes one document.
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	pid, _, err := documentIDs(r)
	if err != nil {
		h.ErrLog.LogBadRequest(w, r, "upload: bad id", err, "")
		return
	}
	_, _, uid, _ := authz.UserCtx(r)

	r.Body = http.MaxBytesReader(w, r.Body, h.Opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(h.Opts.MaxUploadBytes); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			h.ErrLog.LogBadRequest(w, r, "upload: request too large", err,
				"Request is too large. Maximum size is "+strconv.FormatInt(h.Opts.MaxUploadBytes>>20, 10)+" MB.")
			return
		}
		h.ErrLog.LogBadRequest(w, r, "upload: parse form failed", err, "")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	files := r.MultipartForm.File[uploadField]
	if len(files) == 0 {
		h.ErrLog.LogBadRequest(w, r, "upload: no files", nil, "")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	out := make([]models.Asset, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			h.ErrLog.LogBadRequest(w, r, "upload: open part", err, "")
			return
		}
		ct := fh.Header.Get("Content-Type")
		if ct == "" {
			ct = "application/octet-stream"
		}
		a, err := h.Docs.Upload(ctx, pid, uid, fh.Filename, ct, f)
		_ = f.Close()
		if err != nil {
			h.ErrLog.LogServerError(w, r, "upload failed", err, "")
			return
		}
		h.Events.DocumentUploaded(ctx, a, uid)
		out = append(out, *a)
	}
	h.ok(w, r, "upload documents", http.StatusCreated, out)
}

// ServeDocument handles GET /api/projects/{projectId}/document/{assetId}.
func (h *Handler) ServeDocument(w http.ResponseWriter, r *http.Request) {
	pid, aid, err := documentIDs(r)
	if err != nil {
		h.ErrLog.LogBadRequest(w, r, "get document: bad id", err, "")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	a, err := h.Docs.Get(ctx, pid, aid)
	if errors.Is(err, assetstore.ErrNotFound) {
		h.ErrLog.LogNotFound(w, r, "get document: nothing found")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "get document failed", err, "")
		return
	}
	h.ok(w, r, "get document", http.StatusOK, a)
}

// ServeDocumentContent handles GET
// /api/projects/{projectId}/document/{assetId}/render and streams the bytes.
func (h *Handler) ServeDocumentContent(w http.ResponseWriter, r *http.Request) {
	pid, aid, err := documentIDs(r)
	if err != nil {
		h.ErrLog.LogBadRequest(w, r, "render document: bad id", err, "")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	a, err := h.Docs.Get(ctx, pid, aid)
	if errors.Is(err, assetstore.ErrNotFound) {
		h.ErrLog.LogNotFound(w, r, "render document: nothing found")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "render document failed", err, "")
		return
	}

	w.Header().Set("Content-Type", a.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(a.Length, 10))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": a.Filename}))
	if _, err := h.Docs.WriteContent(ctx, pid, aid, w); err != nil {
		// Headers are gone; log only.
		h.Log.Warn("render document: stream failed", zap.Error(err), zap.String("asset_id", aid.Hex()))
	}
}

// HandleDeleteDocument handles DELETE
// /api/projects/{projectId}/document/{assetId}.
func (h *Handler) HandleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	pid, aid, err := documentIDs(r)
	if err != nil {
		h.ErrLog.LogBadRequest(w, r, "delete document: bad id", err, "")
		return
	}
	_, _, uid, _ := authz.UserCtx(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	a, err := h.Docs.Get(ctx, pid, aid)
	if err == nil {
		err = h.Docs.Delete(ctx, pid, aid)
	}
	if errors.Is(err, assetstore.ErrNotFound) {
		h.ErrLog.LogNotFound(w, r, "delete document: nothing found")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "delete document failed", err, "")
		return
	}
	h.Events.DocumentDeleted(ctx, a, uid)
	h.ok(w, r, "delete document", http.StatusNoContent, nil)
}
