package handler

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-booking/internal/service"
)

const (
	typeJSON      = "application/json"
	typeMultipart = "multipart/form-data"
)

// Link is a navigational hint attached to resources and lists.
type Link struct {
	Rel    string   `json:"rel"`
	Href   string   `json:"href"`
	Action string   `json:"action"`
	Types  []string `json:"types"`
}

// listBody is the envelope of every paginated list.
type listBody struct {
	Page       int    `json:"page"`
	Limit      int    `json:"limit"`
	TotalPages int    `json:"totalPages"`
	TotalCount int    `json:"totalCount"`
	Data       any    `json:"data"`
	Links      []Link `json:"links"`
}

// linker builds absolute hrefs from the request's scheme and host.
type linker struct{ base string }

func linksFor(c echo.Context) linker {
	return linker{base: c.Scheme() + "://" + c.Request().Host + "/api"}
}

func (l linker) href(format string, args ...any) string {
	return l.base + fmt.Sprintf(format, args...)
}

func (l linker) link(rel, action, href string, types ...string) Link {
	if types == nil {
		types = []string{}
	}
	return Link{Rel: rel, Href: href, Action: action, Types: types}
}

// crud returns the GET/PUT/DELETE links of a single resource at href.
func (l linker) crud(href, bodyType string) []Link {
	return []Link{
		l.link("self", "GET", href),
		l.link("self", "PUT", href, bodyType),
		l.link("self", "DELETE", href),
	}
}

// list wraps page into the list envelope with self, prev and next links
// that keep the request's other query parameters.
func list[T any](c echo.Context, page service.Page[T], data any, extra ...Link) listBody {
	req := page.Request
	pages := page.TotalPages()
	links := []Link{pageLink(c, "self", req.Page, req.Limit)}
	if req.Page > 1 {
		links = append(links, pageLink(c, "prev", req.Page-1, req.Limit))
	}
	if req.Page < pages {
		links = append(links, pageLink(c, "next", req.Page+1, req.Limit))
	}
	return listBody{
		Page:       req.Page,
		Limit:      req.Limit,
		TotalPages: pages,
		TotalCount: page.Total,
		Data:       data,
		Links:      append(links, extra...),
	}
}

func pageLink(c echo.Context, rel string, page, limit int) Link {
	q := url.Values{}
	for k, v := range c.QueryParams() {
		q[k] = v
	}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))
	href := c.Scheme() + "://" + c.Request().Host + c.Request().URL.Path + "?" + q.Encode()
	return Link{Rel: rel, Href: href, Action: "GET", Types: []string{}}
}

// created writes a 201 with a Location header.
func created(c echo.Context, location string, body any) error {
	c.Response().Header().Set(echo.HeaderLocation, location)
	return c.JSON(http.StatusCreated, body)
}
