package policy

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// LLMContext describes the LLM call parameters of a request.
type LLMContext struct {
	Provider    string   `json:"provider,omitempty"`
	Model       string   `json:"model,omitempty"`
	Prompt      string   `json:"prompt,omitempty"`
	MaxTokens   int      `json:"maxTokens,omitempty"`
	Temperature float64  `json:"temperature,omitempty"`
	Functions   []string `json:"functions,omitempty"`
}

// UserContext describes the authenticated caller.
type UserContext struct {
	ID          string   `json:"id,omitempty"`
	Email       string   `json:"email,omitempty"`
	Roles       []string `json:"roles,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}

// TeamContext describes the caller's team.
type TeamContext struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
	Tier string `json:"tier,omitempty"`
}

// ProjectContext describes the project the request is scoped to.
type ProjectContext struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name,omitempty"`
	Environment string `json:"environment,omitempty"`
}

// RequestContext describes request-envelope metadata.
type RequestContext struct {
	ID        string
	Timestamp time.Time
	IPAddress string
	UserAgent string
}

// Context is the hierarchical request context conditions are evaluated
// against. Sub-records are optional (nil when not supplied). Context is
// immutable for the duration of an Evaluate call (§3 invariant): callers
// must not mutate a Context while it is in flight.
type Context struct {
	LLM      *LLMContext
	User     *UserContext
	Team     *TeamContext
	Project  *ProjectContext
	Request  *RequestContext
	Metadata map[string]Value
}

// NewContext returns an empty Context with an initialized Metadata map,
// ready for the builder-style With* setters.
func NewContext() *Context {
	return &Context{Metadata: make(map[string]Value)}
}

// WithLLM attaches an LLM sub-record and returns the receiver for chaining.
func (c *Context) WithLLM(llm LLMContext) *Context {
	c.LLM = &llm
	return c
}

// WithUser attaches a User sub-record and returns the receiver for chaining.
func (c *Context) WithUser(user UserContext) *Context {
	c.User = &user
	return c
}

// WithTeam attaches a Team sub-record and returns the receiver for chaining.
func (c *Context) WithTeam(team TeamContext) *Context {
	c.Team = &team
	return c
}

// WithProject attaches a Project sub-record and returns the receiver for chaining.
func (c *Context) WithProject(project ProjectContext) *Context {
	c.Project = &project
	return c
}

// WithRequest attaches a Request sub-record and returns the receiver for chaining.
func (c *Context) WithRequest(req RequestContext) *Context {
	c.Request = &req
	return c
}

// WithGeneratedRequest attaches a Request sub-record with an auto-assigned
// ID and the current timestamp, for callers that have no request ID of
// their own to propagate (mirrors the donor's RequestIDMiddleware, which
// generates a uuid when the caller sends none).
func (c *Context) WithGeneratedRequest(ipAddress, userAgent string) *Context {
	return c.WithRequest(RequestContext{
		ID:        uuid.New().String(),
		Timestamp: time.Now().UTC(),
		IPAddress: ipAddress,
		UserAgent: userAgent,
	})
}

// WithMetadata sets a single metadata key and returns the receiver for chaining.
func (c *Context) WithMetadata(key string, value Value) *Context {
	if c.Metadata == nil {
		c.Metadata = make(map[string]Value)
	}
	c.Metadata[key] = value
	return c
}

// Get resolves a dotted field path against the context. It returns the
// absent case (ok=false) when path is empty, the addressed sub-record is
// missing, or the field name is unknown.
func (c *Context) Get(path string) (Value, bool) {
	if path == "" {
		return Value{}, false
	}
	segments := strings.Split(path, ".")
	head := segments[0]
	rest := segments[1:]

	switch head {
	case "llm":
		if c.LLM == nil || len(rest) == 0 {
			return Value{}, false
		}
		return getLLMField(c.LLM, rest[0])
	case "user":
		if c.User == nil || len(rest) == 0 {
			return Value{}, false
		}
		return getUserField(c.User, rest[0])
	case "team":
		if c.Team == nil || len(rest) == 0 {
			return Value{}, false
		}
		return getTeamField(c.Team, rest[0])
	case "project":
		if c.Project == nil || len(rest) == 0 {
			return Value{}, false
		}
		return getProjectField(c.Project, rest[0])
	case "request":
		if c.Request == nil || len(rest) == 0 {
			return Value{}, false
		}
		return getRequestField(c.Request, rest[0])
	case "metadata":
		if len(rest) == 0 {
			return Value{}, false
		}
		v, ok := c.Metadata[rest[0]]
		return v, ok
	default:
		return Value{}, false
	}
}

func getLLMField(llm *LLMContext, name string) (Value, bool) {
	switch name {
	case "provider":
		return String(llm.Provider), true
	case "model":
		return String(llm.Model), true
	case "prompt":
		return String(llm.Prompt), true
	case "maxTokens", "max_tokens":
		return Integer(int64(llm.MaxTokens)), true
	case "temperature":
		return Float(llm.Temperature), true
	case "functions":
		items := make([]Value, len(llm.Functions))
		for i, f := range llm.Functions {
			items[i] = String(f)
		}
		return Array(items...), true
	default:
		return Value{}, false
	}
}

func getUserField(user *UserContext, name string) (Value, bool) {
	switch name {
	case "id":
		return String(user.ID), true
	case "email":
		return String(user.Email), true
	case "roles":
		return stringsToValue(user.Roles), true
	case "permissions":
		return stringsToValue(user.Permissions), true
	default:
		return Value{}, false
	}
}

func getTeamField(team *TeamContext, name string) (Value, bool) {
	switch name {
	case "id":
		return String(team.ID), true
	case "name":
		return String(team.Name), true
	case "tier":
		return String(team.Tier), true
	default:
		return Value{}, false
	}
}

func getProjectField(project *ProjectContext, name string) (Value, bool) {
	switch name {
	case "id":
		return String(project.ID), true
	case "name":
		return String(project.Name), true
	case "environment":
		return String(project.Environment), true
	default:
		return Value{}, false
	}
}

func getRequestField(req *RequestContext, name string) (Value, bool) {
	switch name {
	case "id":
		return String(req.ID), true
	case "timestamp":
		return String(req.Timestamp.UTC().Format(time.RFC3339Nano)), true
	case "ipAddress", "ip_address":
		return String(req.IPAddress), true
	case "userAgent", "user_agent":
		return String(req.UserAgent), true
	default:
		return Value{}, false
	}
}

func stringsToValue(ss []string) Value {
	items := make([]Value, len(ss))
	for i, s := range ss {
		items[i] = String(s)
	}
	return Array(items...)
}

// canonicalView is the stable-ordering, absent-omitting shape used for
// the cache fingerprint and for debugging. Metadata keys are sorted so
// that two Contexts built from differently-ordered sources but
// equivalent content fingerprint identically.
type canonicalView struct {
	LLM      *LLMContext       `json:"llm,omitempty"`
	User     *UserContext      `json:"user,omitempty"`
	Team     *TeamContext      `json:"team,omitempty"`
	Project  *ProjectContext   `json:"project,omitempty"`
	Request  *canonicalRequest `json:"request,omitempty"`
	Metadata map[string]any    `json:"metadata,omitempty"`
}

type canonicalRequest struct {
	ID        string `json:"id,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	IPAddress string `json:"ipAddress,omitempty"`
	UserAgent string `json:"userAgent,omitempty"`
}

// Canonical returns the stable serialization view of c: sub-records that
// are nil are omitted, metadata keys are emitted in sorted order.
func (c *Context) Canonical() canonicalView {
	view := canonicalView{
		LLM:     c.LLM,
		User:    c.User,
		Team:    c.Team,
		Project: c.Project,
	}
	if c.Request != nil {
		view.Request = &canonicalRequest{
			ID:        c.Request.ID,
			Timestamp: c.Request.Timestamp.UTC().Format(time.RFC3339Nano),
			IPAddress: c.Request.IPAddress,
			UserAgent: c.Request.UserAgent,
		}
	}
	if len(c.Metadata) > 0 {
		keys := make([]string, 0, len(c.Metadata))
		for k := range c.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		md := make(map[string]any, len(keys))
		for _, k := range keys {
			md[k] = c.Metadata[k].ToAny()
		}
		view.Metadata = md
	}
	return view
}
