package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/abelbrown/estatedesk/internal/listing"
	"github.com/abelbrown/estatedesk/internal/restapi"
	"github.com/abelbrown/estatedesk/internal/store"
)

// DefaultPerPage is used when a request has no valid perPage.
const DefaultPerPage = listing.DefaultPageSize

type handlers struct {
	backend     Backend
	collections map[string]listing.Collection
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.backend.Stats(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, stats)
}

// list handles GET /api/v1/{collection}
func (h *handlers) list(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "collection")
	coll, spec, ok := h.lookup(w, name)
	if !ok {
		return
	}

	kinds := make(map[string]listing.FieldKind, len(spec.Filters))
	for field, f := range spec.Filters {
		kinds[field] = f.Kind
	}
	q, err := restapi.DecodeQuery(r.URL.Query(), kinds, DefaultPerPage)
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	pg, err := coll.FetchPage(r.Context(), q)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, restapi.FromPage(pg, q.PageSize()))
}

// toggle handles PATCH /api/v1/{collection}/{id}/status
func (h *handlers) toggle(w http.ResponseWriter, r *http.Request) {
	coll, _, ok := h.lookup(w, chi.URLParam(r, "collection"))
	if !ok {
		return
	}
	active, err := coll.ToggleStatus(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, restapi.StatusResponse{IsActive: active})
}

// delete handles DELETE /api/v1/{collection}/{id}
func (h *handlers) delete(w http.ResponseWriter, r *http.Request) {
	coll, _, ok := h.lookup(w, chi.URLParam(r, "collection"))
	if !ok {
		return
	}
	if err := coll.DeleteItem(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) lookup(w http.ResponseWriter, name string) (listing.Collection, store.TableSpec, bool) {
	coll, ok := h.collections[name]
	if !ok {
		WriteJSONError(w, http.StatusNotFound, fmt.Sprintf("unknown collection %q", name))
		return nil, store.TableSpec{}, false
	}
	spec, err := store.Spec(name)
	if err != nil {
		WriteJSONError(w, http.StatusNotFound, err.Error())
		return nil, store.TableSpec{}, false
	}
	return coll, spec, true
}

func (h *handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, store.ErrNotFound) {
		WriteJSONError(w, http.StatusNotFound, "item not found")
		return
	}
	loggerFrom(r.Context()).Error("backend call failed", "error", err)
	WriteJSONError(w, http.StatusInternalServerError, "internal server error")
}
