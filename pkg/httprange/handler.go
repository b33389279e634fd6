package httprange

import (
	"io"
	"net/http"
	"strconv"

	"github.com/adammck/rangecache/pkg/api"
	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

// Handler serves objects from the source through the cache, at
// /objects/{key}. GET and HEAD are supported, with at most one byte range.
type Handler struct {
	sizer  api.ObjectSizer
	loader Loader
	log    logrus.FieldLogger
}

func NewHandler(sizer api.ObjectSizer, loader Loader, log logrus.FieldLogger) *Handler {
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &Handler{
		sizer:  sizer,
		loader: loader,
		log:    log,
	}
}

// Routes returns a router with the handler mounted.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/objects/{key}", h.serveObject)
	r.Head("/objects/{key}", h.serveObject)
	return r
}

func (h *Handler) serveObject(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	log := h.log.WithField("key", key)

	req, parseErr := ParseRange(r.Header.Get("Range"))

	resp := Resolve(r.Context(), h.sizer, h.loader, key, req, r.Method == http.MethodHead || parseErr != nil)

	// ranges which can't be parsed are never satisfiable, but the size is
	// still needed for the Content-Range.
	if ok, isOK := resp.(OK); isOK && parseErr != nil {
		log.WithError(parseErr).Debug("bad range")
		resp = RangeNotSatisfiable{Size: ok.Size}
	}

	switch resp := resp.(type) {
	case OK:
		writeOK(w, resp, log)

	case NotFound:
		http.Error(w, "not found", http.StatusNotFound)

	case RangeNotSatisfiable:
		w.Header().Set("Content-Range", "bytes */"+strconv.FormatUint(resp.Size, 10))
		http.Error(w, "range not satisfiable", http.StatusRequestedRangeNotSatisfiable)

	case InternalError:
		log.WithError(resp.Err).Error("failed to serve object")
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeOK(w http.ResponseWriter, resp OK, log logrus.FieldLogger) {
	hdr := w.Header()
	hdr.Set("Accept-Ranges", "bytes")
	hdr.Set("Content-Type", "application/octet-stream")
	hdr.Set("Content-Length", strconv.FormatUint(resp.ContentLength(), 10))

	status := http.StatusOK
	if resp.Partial {
		hdr.Set("Content-Range", resp.Range.ContentRange(resp.Size))
		status = http.StatusPartialContent
	}

	w.WriteHeader(status)

	if resp.Body == nil {
		return
	}
	defer resp.Body.Close()

	_, err := io.Copy(w, resp.Body)
	if err != nil {
		log.WithError(err).Warn("failed to write body")
	}
}
