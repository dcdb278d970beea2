package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/webnis/webnis/internal/backendpool"
	"github.com/webnis/webnis/internal/lineproto"
)

// Translator turns a parsed line-protocol Command into an HTTPS call
// against the backend pool and back into a reply line, per spec.md §4.E's
// "Request translation" rules.
type Translator struct {
	pool   *backendpool.Pool
	domain string
}

// NewTranslator builds a Translator for one domain's backend pool.
func NewTranslator(pool *backendpool.Pool, domain string) *Translator {
	return &Translator{pool: pool, domain: domain}
}

type envelope struct {
	Result map[string]any `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Identity performs one GETPWNAM/GETPWUID/GETGRNAM/GETGRGID/GETGIDLIST
// request: GET <base>/<domain>/map/<map>?<keyname>=<keyvalue>, decoded and
// re-serialized to the line format.
func (t *Translator) Identity(ctx context.Context, verb lineproto.Verb, keyValue string) (code int, payload string) {
	mapName, keyName, ok := lineproto.Target(verb)
	if !ok {
		return 400, "unsupported command"
	}

	path := fmt.Sprintf("/.well-known/webnis/%s/map/%s?%s=%s",
		url.PathEscape(t.domain), url.PathEscape(mapName), keyName, url.QueryEscape(keyValue))

	resp, err := t.pool.Do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return mapPoolError(err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return 404, "Not Found"
	}
	if resp.StatusCode() != http.StatusOK {
		return 500, upstreamMessage(resp)
	}

	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return 500, "malformed upstream response"
	}
	line, err := lineproto.Serialize(verb, env.Result)
	if err != nil {
		return 500, err.Error()
	}
	return 200, line
}

// Auth performs POST <base>/<domain>/auth with a form-encoded body.
func (t *Translator) Auth(ctx context.Context, name, password, service, remote string) (code int, payload string) {
	path := fmt.Sprintf("/.well-known/webnis/%s/auth", url.PathEscape(t.domain))
	form := map[string]string{"username": name, "password": password}
	if service != "" {
		form["service"] = service
	}
	if remote != "" {
		form["remote"] = remote
	}

	resp, err := t.pool.Do(ctx, http.MethodPost, path, form)
	if err != nil {
		return mapPoolError(err)
	}
	switch resp.StatusCode() {
	case http.StatusOK:
		return 200, "OK"
	case http.StatusUnauthorized:
		return 401, "AUTH FAILED"
	default:
		return 500, upstreamMessage(resp)
	}
}

func upstreamMessage(resp interface{ Body() []byte }) string {
	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err == nil && env.Error != nil {
		return env.Error.Message
	}
	return "upstream error"
}

func mapPoolError(err error) (int, string) {
	if err == backendpool.ErrAllBackendsDown {
		return 503, "all backends down"
	}
	return 500, err.Error()
}
