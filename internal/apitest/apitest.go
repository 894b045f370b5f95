// Package apitest runs an in-memory TaskProX backend for tests.
package apitest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/existflow/taskprox/internal/model"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

var signingKey = []byte("apitest-signing-key")

// Request is what the backend saw for one call
type Request struct {
	Method    string
	Path      string
	Query     string
	Auth      string
	RequestID string
}

type account struct {
	user     model.User
	password string
}

type failure struct {
	method string
	path   string
	status int
	detail string
}

// Backend is a fake server speaking the backend's REST contract
type Backend struct {
	TokenTTL time.Duration

	mu       sync.Mutex
	server   *httptest.Server
	users    map[string]*account
	projects []model.Project
	tasks    []model.Task
	nextID   int
	failures []failure
	requests []Request
}

// New starts a backend that is closed when the test ends
func New(t testing.TB) *Backend {
	b := &Backend{
		TokenTTL: time.Hour,
		users:    map[string]*account{},
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(b.record)
	e.Use(b.injectFailures)

	auth := e.Group("/auth")
	auth.POST("/login", b.handleLogin)
	auth.POST("/register", b.handleRegister)
	auth.POST("/forgot-password", b.handleForgot)
	auth.POST("/reset-password", b.handleReset)
	auth.GET("/me", b.handleMe, b.authMiddleware)
	auth.PUT("/profile", b.handleProfile, b.authMiddleware)
	auth.DELETE("/delete", b.handleDeleteAccount, b.authMiddleware)

	api := e.Group("/api", b.authMiddleware)
	api.GET("/projects", b.handleListProjects)
	api.GET("/projects/summary", b.handleSummary)
	api.GET("/projects/:id", b.handleGetProject)
	api.POST("/projects", b.handleCreateProject)
	api.PUT("/projects/:id", b.handleUpdateProject)
	api.DELETE("/projects/:id", b.handleDeleteProject)

	api.GET("/tasks", b.handleListTasks)
	api.GET("/tasks/by-project/:id", b.handleTasksByProject)
	api.GET("/tasks/:id", b.handleGetTask)
	api.POST("/tasks", b.handleCreateTask)
	api.PUT("/tasks/:id", b.handleUpdateTask)
	api.PATCH("/tasks/:id/status", b.handleTaskStatus)
	api.DELETE("/tasks/:id", b.handleDeleteTask)

	b.server = httptest.NewServer(e)
	t.Cleanup(b.server.Close)
	return b
}

// URL returns the base address
func (b *Backend) URL() string {
	return b.server.URL
}

// AddUser registers an account directly
func (b *Backend) AddUser(u model.User, password string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.users[strings.ToLower(u.Email)] = &account{user: u, password: password}
}

// Token issues a bearer token for a known user
func (b *Backend) Token(email string) string {
	b.mu.Lock()
	acc := b.users[strings.ToLower(email)]
	b.mu.Unlock()

	claims := jwt.MapClaims{
		"sub": email,
		"exp": time.Now().Add(b.TokenTTL).Unix(),
	}
	if acc != nil {
		claims["first_name"] = acc.user.FirstName
		claims["last_name"] = acc.user.LastName
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(signingKey)
	if err != nil {
		panic(err)
	}
	return token
}

// SeedProject stores a project, assigning an id when empty
func (b *Backend) SeedProject(p model.Project) model.Project {
	b.mu.Lock()
	defer b.mu.Unlock()
	if p.ID == "" {
		p.ID = b.newID("p")
	}
	b.projects = append(b.projects, p)
	return p
}

// SeedTask stores a task, assigning an id when empty
func (b *Backend) SeedTask(t model.Task) model.Task {
	b.mu.Lock()
	defer b.mu.Unlock()
	if t.ID == "" {
		t.ID = b.newID("t")
	}
	b.tasks = append(b.tasks, t)
	return t
}

// Tasks returns a snapshot of every stored task
func (b *Backend) Tasks() []model.Task {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]model.Task(nil), b.tasks...)
}

// Projects returns a snapshot of every stored project
func (b *Backend) Projects() []model.Project {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]model.Project(nil), b.projects...)
}

// Fail makes the next request matching method and path answer with status
func (b *Backend) Fail(method, path string, status int, detail string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = append(b.failures, failure{method: method, path: path, status: status, detail: detail})
}

// Requests returns every request received so far
func (b *Backend) Requests() []Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Request(nil), b.requests...)
}

// LastRequest returns the most recent request
func (b *Backend) LastRequest() Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.requests) == 0 {
		return Request{}
	}
	return b.requests[len(b.requests)-1]
}

func (b *Backend) newID(prefix string) string {
	b.nextID++
	return fmt.Sprintf("%s%d", prefix, b.nextID)
}

func (b *Backend) record(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		b.mu.Lock()
		b.requests = append(b.requests, Request{
			Method:    req.Method,
			Path:      req.URL.Path,
			Query:     req.URL.RawQuery,
			Auth:      req.Header.Get("Authorization"),
			RequestID: req.Header.Get("X-Request-ID"),
		})
		b.mu.Unlock()
		return next(c)
	}
}

func (b *Backend) injectFailures(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		b.mu.Lock()
		for i, f := range b.failures {
			if f.method == req.Method && f.path == req.URL.Path {
				b.failures = append(b.failures[:i], b.failures[i+1:]...)
				b.mu.Unlock()
				return detail(c, f.status, f.detail)
			}
		}
		b.mu.Unlock()
		return next(c)
	}
}

func (b *Backend) authMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get("Authorization")
		raw := strings.TrimPrefix(header, "Bearer ")
		if header == "" || raw == header {
			return detail(c, http.StatusUnauthorized, "Not authenticated")
		}

		claims := jwt.MapClaims{}
		_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
			return signingKey, nil
		}, jwt.WithValidMethods([]string{"HS256"}))
		if err != nil {
			return detail(c, http.StatusUnauthorized, "Token inválido")
		}

		email, _ := claims.GetSubject()
		b.mu.Lock()
		acc := b.users[strings.ToLower(email)]
		b.mu.Unlock()
		if acc == nil {
			return detail(c, http.StatusNotFound, "Usuario no encontrado")
		}

		c.Set("email", acc.user.Email)
		c.Set("name", acc.user.FullName())
		return next(c)
	}
}

func detail(c echo.Context, status int, msg string) error {
	return c.JSON(status, map[string]string{"detail": msg})
}

func message(c echo.Context, msg string) error {
	return c.JSON(http.StatusOK, map[string]string{"message": msg})
}

func decode(c echo.Context, v any) error {
	if err := json.NewDecoder(c.Request().Body).Decode(v); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "invalid body: "+err.Error())
	}
	return nil
}

func caller(c echo.Context) (email, name string) {
	email, _ = c.Get("email").(string)
	name, _ = c.Get("name").(string)
	return email, name
}
