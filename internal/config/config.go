// Package config holds the validated, immutable-after-load configuration
// tree for a webnis server or binding daemon: listen addresses, per-domain
// authorization and map access, and the map table itself. A tree is built
// once by New (or a front door such as internal/config/fixture) and then
// shared by reference for the life of the process — there is no reload
// path; restart is the supported mechanism.
package config

import (
	"fmt"

	"github.com/webnis/webnis/internal/auth"
)

// MapType names a map backend's storage kind.
type MapType string

const (
	MapTypeGdbm MapType = "gdbm"
	MapTypeJSON MapType = "json"
	MapTypeLua  MapType = "lua"
)

// RecordFormat names a byte-oriented record's wire shape. It only applies
// to Gdbm/Json-backed maps; Lua maps bypass the record parser entirely.
type RecordFormat string

const (
	FormatJSON             RecordFormat = "json"
	FormatPasswd           RecordFormat = "passwd"
	FormatGroup            RecordFormat = "group"
	FormatAdjunct          RecordFormat = "adjunct"
	FormatKeyValue         RecordFormat = "key-value"
	FormatColonSeparated   RecordFormat = "colon-separated"
	FormatTabSeparated     RecordFormat = "tab-separated"
	FormatWhitespaceSep    RecordFormat = "whitespace-separated"
)

// MapDef is one concrete, dispatchable map: a single backend of a single
// type serving a single record format (where applicable).
type MapDef struct {
	Name       string
	Keyname    string // for a sub-map, the field name a json backend matches against; empty on a flat map
	Type       MapType
	Format     RecordFormat
	File       string
	Output     map[string]string
	KeyAlias   map[string]string
	Entrypoint string
}

// CanonicalKey resolves an alias (or the key itself, if it names no alias)
// to the canonical key name this map was indexed under.
func (m *MapDef) CanonicalKey(keyOrAlias string) string {
	if canon, ok := m.KeyAlias[keyOrAlias]; ok {
		return canon
	}
	return keyOrAlias
}

// MapNode is a top-level named map: either a single concrete definition
// (Flat) or a table of concrete definitions keyed by lookup key (SubMaps).
type MapNode struct {
	Name    string
	Flat    *MapDef
	SubMaps map[string]*MapDef // canonical keyname -> concrete map
	index   map[string]*MapDef // keyname-or-alias -> concrete map
}

// Resolve finds the concrete MapDef serving keyOrAlias (keyname or alias)
// on this node. For a flat node, keyOrAlias is ignored. Returns false if
// nothing resolves.
func (n *MapNode) Resolve(keyOrAlias string) (*MapDef, bool) {
	if n.Flat != nil {
		return n.Flat, true
	}
	def, ok := n.index[keyOrAlias]
	return def, ok
}

// AllDefs returns every concrete MapDef reachable from this node, each
// listed once regardless of how many aliases resolve to it.
func (n *MapNode) AllDefs() []*MapDef {
	if n.Flat != nil {
		return []*MapDef{n.Flat}
	}
	defs := make([]*MapDef, 0, len(n.SubMaps))
	for _, def := range n.SubMaps {
		defs = append(defs, def)
	}
	return defs
}

// AuthConfig names where to find a domain's adjunct password record.
type AuthConfig struct {
	Name      string
	MapName   string
	LookupKey string
}

// Domain is one tenant: its own data directory, authorization secret, and
// allowed-map set.
type Domain struct {
	Name             string
	Token            auth.Token
	HTTPAuthHeader   string
	HTTPAuthScheme   string
	HTTPAuthEncoding auth.Encoding
	DataDir          string
	AllowedMaps      map[string]struct{}
	AuthName         string
}

// HeaderPolicy builds the auth.HeaderPolicy this domain expects incoming
// requests to satisfy.
func (d *Domain) HeaderPolicy() auth.HeaderPolicy {
	return auth.HeaderPolicy{
		Header:   d.HTTPAuthHeader,
		Scheme:    d.HTTPAuthScheme,
		Encoding: d.HTTPAuthEncoding,
	}
}

// MapAllowed reports whether name is in this domain's allowed-map set.
func (d *Domain) MapAllowed(name string) bool {
	_, ok := d.AllowedMaps[name]
	return ok
}

// Server is the process-wide listener and TLS/script configuration.
type Server struct {
	Listen     []string
	TLSCert    string
	TLSKey     string
	ScriptPath string
}

// Config is the full, validated configuration tree.
type Config struct {
	Server  Server
	Domains map[string]*Domain
	Maps    map[string]*MapNode
	Auth    map[string]*AuthConfig
}

// Domain looks up a tenant by name.
func (c *Config) Domain(name string) (*Domain, bool) {
	d, ok := c.Domains[name]
	return d, ok
}

// ResolveMap resolves (mapName, keyOrAlias) to a concrete MapDef, honoring
// a domain's allowed-map set. Returns false if the map is not in allowed,
// does not exist, or the key/alias does not resolve.
func (c *Config) ResolveMap(d *Domain, mapName, keyOrAlias string) (*MapDef, bool) {
	if !d.MapAllowed(mapName) {
		return nil, false
	}
	node, ok := c.Maps[mapName]
	if !ok {
		return nil, false
	}
	return node.Resolve(keyOrAlias)
}

// AuthFor resolves a domain's named auth configuration, if any.
func (c *Config) AuthFor(d *Domain) (*AuthConfig, bool) {
	if d.AuthName == "" {
		return nil, false
	}
	a, ok := c.Auth[d.AuthName]
	return a, ok
}

// ResolveAuthMap resolves an AuthConfig's credential map independently of
// any domain's allowed-map set: a domain exposes a map for direct lookup by
// listing it in AllowedMaps, but its auth map (typically a shadow/adjunct
// table) is consulted only internally by the auth endpoint and must never
// need to be client-requestable to be used for password verification.
func (c *Config) ResolveAuthMap(a *AuthConfig) (*MapDef, bool) {
	node, ok := c.Maps[a.MapName]
	if !ok {
		return nil, false
	}
	return node.Resolve(a.LookupKey)
}

// New validates def and builds an immutable Config from it. It performs
// every §3 structural invariant check: allowed-map resolution, sub-map
// alias ambiguity, and domain token validity. It does not open any file —
// gdbm handles and json materialization are the map backend set's job at
// startup, not config's.
func New(def *Definition) (*Config, error) {
	maps, err := buildMaps(def.Maps)
	if err != nil {
		return nil, err
	}

	auths, err := buildAuth(def.Auth, maps)
	if err != nil {
		return nil, err
	}

	domains, err := buildDomains(def.Domains, maps, auths)
	if err != nil {
		return nil, err
	}

	return &Config{
		Server: Server{
			Listen:     def.Server.Listen,
			TLSCert:    def.Server.TLSCert,
			TLSKey:     def.Server.TLSKey,
			ScriptPath: def.Server.ScriptPath,
		},
		Domains: domains,
		Maps:    maps,
		Auth:    auths,
	}, nil
}

func buildMaps(defs map[string]MapDefinition) (map[string]*MapNode, error) {
	maps := make(map[string]*MapNode, len(defs))
	for name, d := range defs {
		node, err := buildMapNode(name, d)
		if err != nil {
			return nil, fmt.Errorf("map %q: %w", name, err)
		}
		maps[name] = node
	}
	return maps, nil
}

func buildMapNode(name string, d MapDefinition) (*MapNode, error) {
	if len(d.Keys) > 0 && d.Type != "" {
		return nil, fmt.Errorf("cannot be both a flat map (type set) and a keyed table (keys set)")
	}

	if len(d.Keys) > 0 {
		subMaps := make(map[string]*MapDef, len(d.Keys))
		index := make(map[string]*MapDef)
		for keyname, sd := range d.Keys {
			def, err := buildMapDef(name, sd)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", keyname, err)
			}
			def.Keyname = keyname
			subMaps[keyname] = def
			if err := addToIndex(index, keyname, def); err != nil {
				return nil, err
			}
			for alias := range def.KeyAlias {
				if err := addToIndex(index, alias, def); err != nil {
					return nil, err
				}
			}
		}
		return &MapNode{Name: name, SubMaps: subMaps, index: index}, nil
	}

	def, err := buildMapDef(name, d)
	if err != nil {
		return nil, err
	}
	return &MapNode{Name: name, Flat: def}, nil
}

func addToIndex(index map[string]*MapDef, key string, def *MapDef) error {
	if existing, ok := index[key]; ok && existing != def {
		return fmt.Errorf("ambiguous key/alias %q resolves to more than one sub-map", key)
	}
	index[key] = def
	return nil
}

func buildMapDef(mapName string, d MapDefinition) (*MapDef, error) {
	if d.Type == "" {
		return nil, fmt.Errorf("missing type")
	}
	typ := MapType(d.Type)
	switch typ {
	case MapTypeGdbm, MapTypeJSON:
		if d.Format == "" {
			return nil, fmt.Errorf("type %q requires format", d.Type)
		}
		switch RecordFormat(d.Format) {
		case FormatJSON, FormatPasswd, FormatGroup, FormatAdjunct, FormatKeyValue,
			FormatColonSeparated, FormatTabSeparated, FormatWhitespaceSep:
		default:
			return nil, fmt.Errorf("unknown format %q", d.Format)
		}
		if typ == MapTypeGdbm && RecordFormat(d.Format) == FormatJSON {
			return nil, fmt.Errorf("type gdbm does not support format json")
		}
		if d.File == "" {
			return nil, fmt.Errorf("type %q requires file", d.Type)
		}
	case MapTypeLua:
		if d.Entrypoint == "" {
			return nil, fmt.Errorf("type lua requires entrypoint")
		}
	default:
		return nil, fmt.Errorf("unknown type %q", d.Type)
	}

	return &MapDef{
		Name:       mapName,
		Type:       typ,
		Format:     RecordFormat(d.Format),
		File:       d.File,
		Output:     d.Output,
		KeyAlias:   d.KeyAlias,
		Entrypoint: d.Entrypoint,
	}, nil
}

func buildAuth(defs map[string]AuthDefinition, maps map[string]*MapNode) (map[string]*AuthConfig, error) {
	auths := make(map[string]*AuthConfig, len(defs))
	for name, d := range defs {
		if d.MapName == "" || d.LookupKey == "" {
			return nil, fmt.Errorf("auth %q: map_name and lookup_key are required", name)
		}
		node, ok := maps[d.MapName]
		if !ok {
			return nil, fmt.Errorf("auth %q: map %q does not exist", name, d.MapName)
		}
		if _, ok := node.Resolve(d.LookupKey); !ok {
			return nil, fmt.Errorf("auth %q: map %q has no key/alias %q", name, d.MapName, d.LookupKey)
		}
		auths[name] = &AuthConfig{Name: name, MapName: d.MapName, LookupKey: d.LookupKey}
	}
	return auths, nil
}

func buildDomains(defs map[string]DomainDefinition, maps map[string]*MapNode, auths map[string]*AuthConfig) (map[string]*Domain, error) {
	domains := make(map[string]*Domain, len(defs))
	for name, d := range defs {
		domain, err := buildDomain(name, d, maps, auths)
		if err != nil {
			return nil, fmt.Errorf("domain %q: %w", name, err)
		}
		domains[name] = domain
	}
	return domains, nil
}

func buildDomain(name string, d DomainDefinition, maps map[string]*MapNode, auths map[string]*AuthConfig) (*Domain, error) {
	token, err := auth.NewTokenFromString(d.Token)
	if err != nil {
		return nil, fmt.Errorf("%w", err)
	}

	encoding := auth.Encoding(d.HTTPAuthEncoding)
	switch encoding {
	case "":
		encoding = auth.EncodingBase64
	case auth.EncodingBase64, auth.EncodingRaw:
	default:
		return nil, fmt.Errorf("unknown http_authencoding %q", d.HTTPAuthEncoding)
	}

	header := d.HTTPAuthHeader
	if header == "" {
		header = "Authorization"
	}
	scheme := d.HTTPAuthScheme
	if scheme == "" {
		scheme = "Basic"
	}

	allowed := make(map[string]struct{}, len(d.AllowedMaps))
	for _, m := range d.AllowedMaps {
		if _, ok := maps[m]; !ok {
			return nil, fmt.Errorf("allowed map %q does not exist", m)
		}
		allowed[m] = struct{}{}
	}

	if d.Auth != "" {
		if _, ok := auths[d.Auth]; !ok {
			return nil, fmt.Errorf("auth reference %q does not exist", d.Auth)
		}
	}

	return &Domain{
		Name:             name,
		Token:            token,
		HTTPAuthHeader:   header,
		HTTPAuthScheme:   scheme,
		HTTPAuthEncoding: encoding,
		DataDir:          d.DataDir,
		AllowedMaps:      allowed,
		AuthName:         d.Auth,
	}, nil
}
