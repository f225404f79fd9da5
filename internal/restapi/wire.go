// Package restapi is the HTTP wire format for collections and a client
// that serves a remote collection as a listing.Collection.
package restapi

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/abelbrown/estatedesk/internal/listing"
)

// MaxPerPage caps the page size a server will honor.
const MaxPerPage = 100

// ItemDTO is one row on the wire.
type ItemDTO struct {
	ID         string            `json:"id"`
	Title      string            `json:"title"`
	Subtitle   string            `json:"subtitle,omitempty"`
	IsActive   bool              `json:"isActive"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// PageResponse is the body of GET /api/v1/{collection}.
type PageResponse struct {
	Data       []ItemDTO `json:"data"`
	Page       int       `json:"page"`
	PerPage    int       `json:"perPage"`
	Total      int       `json:"total"`
	TotalPages int       `json:"totalPages"`
}

// StatusResponse is the body of PATCH /api/v1/{collection}/{id}/status.
// IsActive is omitted when the backend doesn't report the stored value.
type StatusResponse struct {
	IsActive *bool `json:"isActive,omitempty"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// FromPage converts a listing page to its wire form.
func FromPage(pg listing.Page, perPage int) PageResponse {
	resp := PageResponse{
		Data:       make([]ItemDTO, 0, len(pg.Items)),
		Page:       pg.Page,
		PerPage:    perPage,
		Total:      pg.TotalCount,
		TotalPages: pg.TotalPages,
	}
	for _, it := range pg.Items {
		resp.Data = append(resp.Data, ItemDTO{
			ID:         it.ID,
			Title:      it.Title,
			Subtitle:   it.Subtitle,
			IsActive:   it.Active,
			Attributes: it.Attributes,
		})
	}
	return resp
}

// ToPage converts a wire page back to a listing page.
func (r PageResponse) ToPage() listing.Page {
	pg := listing.Page{
		Page:       r.Page,
		TotalPages: r.TotalPages,
		TotalCount: r.Total,
		Items:      make([]listing.Item, 0, len(r.Data)),
	}
	for _, d := range r.Data {
		pg.Items = append(pg.Items, listing.Item{
			ID:         d.ID,
			Title:      d.Title,
			Subtitle:   d.Subtitle,
			Active:     d.IsActive,
			Attributes: d.Attributes,
		})
	}
	return pg
}

// EncodeQuery renders q as URL parameters: q, page, perPage, one
// parameter per text or number field, and <field>Min/<field>Max for ranges.
func EncodeQuery(q listing.Query) url.Values {
	v := url.Values{}
	if term := q.SearchTerm(); term != "" {
		v.Set("q", term)
	}
	v.Set("page", strconv.Itoa(q.Page()))
	v.Set("perPage", strconv.Itoa(q.PageSize()))
	for _, name := range q.FieldNames() {
		fv, _ := q.Field(name)
		switch fv.Kind {
		case listing.FieldText:
			v.Set(name, fv.Text)
		case listing.FieldNumber:
			v.Set(name, formatFloat(fv.Num))
		case listing.FieldRange:
			v.Set(name+"Min", formatFloat(fv.Range.Min))
			if fv.Range.Bounded() {
				v.Set(name+"Max", formatFloat(fv.Range.Max))
			}
		}
	}
	return v
}

// DecodeQuery parses URL parameters produced by EncodeQuery. Only fields
// named in kinds are read; others are ignored. A malformed number is an
// error. A missing or non-positive page or perPage falls back to defaults;
// perPage above MaxPerPage is capped.
func DecodeQuery(v url.Values, kinds map[string]listing.FieldKind, defaultPerPage int) (listing.Query, error) {
	page, _ := strconv.Atoi(v.Get("page"))
	if page < 1 {
		page = 1
	}
	perPage, _ := strconv.Atoi(v.Get("perPage"))
	if perPage < 1 {
		perPage = defaultPerPage
	}
	perPage = min(perPage, MaxPerPage)

	fields := make(map[string]listing.FieldValue)
	for name, kind := range kinds {
		switch kind {
		case listing.FieldText:
			if s := strings.TrimSpace(v.Get(name)); s != "" {
				fields[name] = listing.Text(s)
			}
		case listing.FieldNumber:
			n, ok, err := parseFloat(v, name)
			if err != nil {
				return listing.Query{}, err
			}
			if ok {
				fields[name] = listing.Number(n)
			}
		case listing.FieldRange:
			min, hasMin, err := parseFloat(v, name+"Min")
			if err != nil {
				return listing.Query{}, err
			}
			max, hasMax, err := parseFloat(v, name+"Max")
			if err != nil {
				return listing.Query{}, err
			}
			if hasMin || hasMax {
				fields[name] = listing.RangeOf(min, max)
			}
		}
	}

	return listing.NewQuery(v.Get("q"), fields, page, perPage), nil
}

func parseFloat(v url.Values, key string) (float64, bool, error) {
	s := strings.TrimSpace(v.Get(key))
	if s == "" {
		return 0, false, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, fmt.Errorf("invalid %s: %q", key, s)
	}
	return f, true, nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
