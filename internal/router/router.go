package router

import (
	"net/url"
	"strings"
	"sync"
	"time"

	"PersonalQT/internal/domain/models"
)

// PlatformName is the bare document title.
const PlatformName = "量化交易管理平台"

// DefaultBase is the sub-path the app is served under.
const DefaultBase = "/personal-qt/"

// Route binds a path to a view.
type Route struct {
	Path  string `json:"path"`
	Name  string `json:"name"`
	Title string `json:"title"`
	// Collections lists what the view reads from the store.
	Collections []models.Collection `json:"collections"`
}

// Location is a navigation target. Route is nil when no route matched.
type Location struct {
	Path  string    `json:"path"`
	Route *Route    `json:"route,omitempty"`
	Title string    `json:"title"`
	At    time.Time `json:"at"`
}

// Matched reports whether a declared route was found.
func (l Location) Matched() bool { return l.Route != nil }

// Hook runs before every navigation. Navigation is unconditional, so a hook
// observes but cannot cancel it.
type Hook func(to, from Location)

// DefaultRoutes is the page table of the admin frontend.
func DefaultRoutes() []Route {
	return []Route{
		{Path: "/", Name: "Home", Title: "首页", Collections: []models.Collection{
			models.CollectionStockTrades, models.CollectionDailyReviews, models.CollectionDailyFunds,
		}},
		{Path: "/stock-trades", Name: "StockTrades", Title: "交易记录", Collections: []models.Collection{
			models.CollectionStockTrades, models.CollectionCategories,
		}},
		{Path: "/categories", Name: "Categories", Title: "分类管理", Collections: []models.Collection{
			models.CollectionCategories,
		}},
		{Path: "/failure-cases", Name: "FailureCases", Title: "失败案例", Collections: []models.Collection{
			models.CollectionFailureCases,
		}},
		{Path: "/daily-reviews", Name: "DailyReviews", Title: "每日复盘", Collections: []models.Collection{
			models.CollectionDailyReviews,
		}},
		{Path: "/daily-funds", Name: "DailyFunds", Title: "资金曲线", Collections: []models.Collection{
			models.CollectionDailyFunds,
		}},
	}
}

// TitleFor returns the document title shown for r.
func TitleFor(r *Route) string {
	if r == nil || r.Title == "" {
		return PlatformName
	}
	return r.Title + " - " + PlatformName
}

// Option configures Router.
type Option func(*Router)

// WithBase sets the deployment sub-path.
func WithBase(base string) Option {
	return func(r *Router) {
		r.base = normalizeBase(base)
	}
}

// WithRoutes replaces the route table.
func WithRoutes(routes []Route) Option {
	return func(r *Router) {
		r.routes = routes
	}
}

// WithHistoryLimit caps how many entries History keeps.
func WithHistoryLimit(n int) Option {
	return func(r *Router) {
		if n > 0 {
			r.historyLimit = n
		}
	}
}

// Router resolves paths against a fixed route table and tracks the current
// location, its document title and the navigation history.
type Router struct {
	base         string
	routes       []Route
	byPath       map[string]int
	historyLimit int

	mu      sync.Mutex
	hooks   []hookEntry
	nextID  int
	current Location
	history []Location
	title   string
	now     func() time.Time
}

// New creates a router over DefaultRoutes served at DefaultBase.
func New(opts ...Option) *Router {
	r := &Router{
		base:         DefaultBase,
		routes:       DefaultRoutes(),
		historyLimit: 100,
		title:        PlatformName,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.byPath = make(map[string]int, len(r.routes))
	for i, rt := range r.routes {
		r.byPath[normalizePath(rt.Path)] = i
	}
	return r
}

// Base returns the deployment sub-path, always with both slashes.
func (r *Router) Base() string { return r.base }

// Routes returns a copy of the route table.
func (r *Router) Routes() []Route {
	out := make([]Route, len(r.routes))
	copy(out, r.routes)
	return out
}

// Resolve finds the route for an app path ("/daily-funds", "/daily-funds/",
// "/daily-funds?x=1").
func (r *Router) Resolve(path string) (*Route, bool) {
	i, ok := r.byPath[normalizePath(path)]
	if !ok {
		return nil, false
	}
	rt := r.routes[i]
	return &rt, true
}

// StripBase turns a request path into an app path. It reports false when
// the path lies outside the base.
func (r *Router) StripBase(requestPath string) (string, bool) {
	if requestPath+"/" == r.base {
		return "/", true
	}
	if !strings.HasPrefix(requestPath, r.base) {
		return "", false
	}
	return "/" + strings.TrimPrefix(requestPath, r.base), true
}

// Href returns the request path a route is served at.
func (r *Router) Href(appPath string) string {
	return r.base + strings.TrimPrefix(appPath, "/")
}

// BeforeEach registers a hook run on every navigation, in registration
// order. The returned func unregisters it.
func (r *Router) BeforeEach(h Hook) func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextID
	r.nextID++
	r.hooks = append(r.hooks, hookEntry{id: id, fn: h})
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		for i, e := range r.hooks {
			if e.id == id {
				r.hooks = append(r.hooks[:i:i], r.hooks[i+1:]...)
				return
			}
		}
	}
}

type hookEntry struct {
	id int
	fn Hook
}

// Locate resolves path into the Location Navigate would move to, without
// touching the current location, title, history or hooks.
func (r *Router) Locate(path string) Location {
	rt, _ := r.Resolve(path)
	return Location{
		Path:  normalizePath(path),
		Route: rt,
		Title: TitleFor(rt),
		At:    r.now(),
	}
}

// Navigate moves to path. The document title is set before hooks run and
// before the location changes.
func (r *Router) Navigate(path string) Location {
	to := r.Locate(path)

	r.mu.Lock()
	r.title = to.Title
	from := r.current
	hooks := make([]Hook, 0, len(r.hooks))
	for _, e := range r.hooks {
		hooks = append(hooks, e.fn)
	}
	r.mu.Unlock()

	for _, h := range hooks {
		h(to, from)
	}

	r.mu.Lock()
	r.current = to
	r.history = append(r.history, to)
	if over := len(r.history) - r.historyLimit; over > 0 {
		r.history = append([]Location(nil), r.history[over:]...)
	}
	r.mu.Unlock()
	return to
}

// Back returns to the previous history entry without recording a new one.
func (r *Router) Back() (Location, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.history) < 2 {
		return r.current, false
	}
	r.history = r.history[:len(r.history)-1]
	r.current = r.history[len(r.history)-1]
	r.title = r.current.Title
	return r.current, true
}

// DocumentTitle is the title set by the last navigation.
func (r *Router) DocumentTitle() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.title
}

// Current is the location of the last navigation.
func (r *Router) Current() Location {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// History returns past locations, oldest first.
func (r *Router) History() []Location {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Location, len(r.history))
	copy(out, r.history)
	return out
}

func normalizePath(p string) string {
	// a leading "//" would parse as a host
	if strings.HasPrefix(p, "//") {
		p = "/" + strings.TrimLeft(p, "/")
	}
	if u, err := url.Parse(p); err == nil {
		p = u.Path
	}
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
		if p == "" {
			p = "/"
		}
	}
	return p
}

func normalizeBase(b string) string {
	b = strings.Trim(b, "/")
	if b == "" {
		return "/"
	}
	return "/" + b + "/"
}
