// Package mapstore ties the three concrete map backends (hashfile, jsonmap,
// luamap) to a validated config.Config, resolving a (domain, map name,
// keyname-or-alias) triple down to a single decoded, projected record per
// spec §4.C. Gdbm and json backends are opened once per (domain, map) pair
// at startup, since a map definition's file path is relative to its
// domain's data directory; lua maps share one process-wide script host.
package mapstore

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/webnis/webnis/internal/config"
	"github.com/webnis/webnis/internal/mapstore/hashfile"
	"github.com/webnis/webnis/internal/mapstore/jsonmap"
	"github.com/webnis/webnis/internal/mapstore/luamap"
	"github.com/webnis/webnis/internal/project"
	"github.com/webnis/webnis/internal/record"
)

// ErrNotFound names the "no matching record" outcome. Lookup and LookupAuth
// do not return it: they report every miss as found=false with a nil error.
var ErrNotFound = errors.New("mapstore: no matching record")

// Store holds every opened backend handle for a validated configuration
// tree, keyed per (domain, MapDef) since gdbm/json files live under a
// domain-specific data directory.
type Store struct {
	cfg  *config.Config
	gdbm map[string]map[*config.MapDef]*hashfile.Table
	json map[string]map[*config.MapDef]*jsonmap.Table
	lua  *luamap.Backend
}

// Open materializes every allowed map of every domain in cfg. luaBackend may
// be nil if no domain's allowed-map set contains a "type: lua" map.
func Open(cfg *config.Config, luaBackend *luamap.Backend) (*Store, error) {
	s := &Store{
		cfg:  cfg,
		gdbm: make(map[string]map[*config.MapDef]*hashfile.Table),
		json: make(map[string]map[*config.MapDef]*jsonmap.Table),
		lua:  luaBackend,
	}

	for domainName, domain := range cfg.Domains {
		gdbmByDef := make(map[*config.MapDef]*hashfile.Table)
		jsonByDef := make(map[*config.MapDef]*jsonmap.Table)

		mapNames := make(map[string]struct{}, len(domain.AllowedMaps)+1)
		for mapName := range domain.AllowedMaps {
			mapNames[mapName] = struct{}{}
		}
		// The domain's auth map (commonly a shadow/adjunct table) is never
		// listed in AllowedMaps on purpose, but the auth endpoint still
		// needs its backend opened.
		if authCfg, ok := cfg.AuthFor(domain); ok {
			mapNames[authCfg.MapName] = struct{}{}
		}

		for mapName := range mapNames {
			node, ok := cfg.Maps[mapName]
			if !ok {
				continue
			}
			for _, def := range node.AllDefs() {
				switch def.Type {
				case config.MapTypeGdbm:
					path := filepath.Join(domain.DataDir, def.File)
					tbl, err := hashfile.Open(path)
					if err != nil {
						s.Close()
						return nil, fmt.Errorf("mapstore: domain %q map %q: %w", domainName, mapName, err)
					}
					gdbmByDef[def] = tbl
				case config.MapTypeJSON:
					path := filepath.Join(domain.DataDir, def.File)
					tbl, err := jsonmap.Load(path)
					if err != nil {
						s.Close()
						return nil, fmt.Errorf("mapstore: domain %q map %q: %w", domainName, mapName, err)
					}
					jsonByDef[def] = tbl
				case config.MapTypeLua:
					if s.lua == nil {
						s.Close()
						return nil, fmt.Errorf("mapstore: domain %q map %q: type lua requires a script host", domainName, mapName)
					}
				}
			}
		}

		s.gdbm[domainName] = gdbmByDef
		s.json[domainName] = jsonByDef
	}

	return s, nil
}

// Close releases every opened gdbm handle. json tables and the lua backend
// hold no OS resources of their own.
func (s *Store) Close() {
	for _, byDef := range s.gdbm {
		for _, tbl := range byDef {
			tbl.Close()
		}
	}
}

// Lookup resolves mapName/keyOrAlias against domain's allowed-map set,
// dispatches to the concrete backend for the resulting MapDef, and returns
// the decoded record, optionally re-shaped through the map's output
// template, and the HTTP status the caller should report — always 200 for
// the gdbm/json backends, but whatever status a "type: lua" entry point
// chose via its "table, status_code" return (§4.D). A config-level
// resolution failure and a resolved map with no matching record look the
// same to the caller: found=false with a nil error, for it to turn into its
// own 404.
func (s *Store) Lookup(ctx context.Context, domain *config.Domain, mapName, keyOrAlias, keyValue string) (rec *record.Record, found bool, status int, err error) {
	def, ok := s.cfg.ResolveMap(domain, mapName, keyOrAlias)
	if !ok {
		return nil, false, 0, nil
	}
	return s.dispatch(ctx, domain, mapName, keyOrAlias, keyValue, def)
}

// LookupAuth resolves domain's configured auth map independently of its
// AllowedMaps set and dispatches the same way Lookup does. Used by the auth
// endpoint, which must be able to consult a credential map the domain never
// exposes for direct client lookup.
func (s *Store) LookupAuth(ctx context.Context, domain *config.Domain, authCfg *config.AuthConfig, keyValue string) (rec *record.Record, found bool, status int, err error) {
	def, ok := s.cfg.ResolveAuthMap(authCfg)
	if !ok {
		return nil, false, 0, nil
	}
	return s.dispatch(ctx, domain, authCfg.MapName, authCfg.LookupKey, keyValue, def)
}

func (s *Store) dispatch(ctx context.Context, domain *config.Domain, mapName, keyOrAlias, keyValue string, def *config.MapDef) (*record.Record, bool, int, error) {
	var rec *record.Record
	status := http.StatusOK

	switch def.Type {
	case config.MapTypeGdbm:
		tbl, ok := s.gdbm[domain.Name][def]
		if !ok {
			return nil, false, 0, fmt.Errorf("mapstore: map %q not opened for domain %q", mapName, domain.Name)
		}
		raw, found, err := tbl.Lookup(keyValue)
		if err != nil {
			return nil, false, 0, fmt.Errorf("mapstore: %w", err)
		}
		if !found {
			return nil, false, 0, nil
		}
		rec, err = record.Parse(record.Format(def.Format), raw)
		if err != nil {
			return nil, false, 0, fmt.Errorf("mapstore: %w", err)
		}

	case config.MapTypeJSON:
		tbl, ok := s.json[domain.Name][def]
		if !ok {
			return nil, false, 0, fmt.Errorf("mapstore: map %q not opened for domain %q", mapName, domain.Name)
		}
		field := def.Keyname
		if field == "" {
			field = def.CanonicalKey(keyOrAlias)
		}
		raw, found, err := tbl.Lookup(field, keyValue)
		if err != nil {
			return nil, false, 0, fmt.Errorf("mapstore: %w", err)
		}
		if !found {
			return nil, false, 0, nil
		}
		rec, err = record.Parse(record.Format(def.Format), raw)
		if err != nil {
			return nil, false, 0, fmt.Errorf("mapstore: %w", err)
		}

	case config.MapTypeLua:
		if s.lua == nil {
			return nil, false, 0, fmt.Errorf("mapstore: map %q has no script host", mapName)
		}
		value, luaStatus, found, err := s.lua.Lookup(ctx, def.Entrypoint, domain.Name, def.CanonicalKey(keyOrAlias), keyValue)
		if err != nil {
			return nil, false, 0, fmt.Errorf("mapstore: %w", err)
		}
		if !found {
			return nil, false, 0, nil
		}
		rec = recordFromValue(value)
		status = luaStatus

	default:
		return nil, false, 0, fmt.Errorf("mapstore: unknown map type %q", def.Type)
	}

	if def.Output != nil {
		rec = project.Project(def.Output, rec)
	}
	return rec, true, status, nil
}

// recordFromValue wraps an already-decoded Lua table result (a
// map[string]any, since gopher-lua tables carry no field order) into a
// Record. Field order is whatever Go's map iteration yields; lua maps never
// feed the line-protocol re-serializer, so this is harmless.
func recordFromValue(value any) *record.Record {
	rec := record.New()
	m, ok := value.(map[string]any)
	if !ok {
		rec.Set("value", value)
		return rec
	}
	for k, v := range m {
		rec.Set(k, v)
	}
	return rec
}
