package force

import (
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/force-pipeline/internal/model"
)

// Resolver maps free text and email addresses to canonical force IDs.
// It holds no mutable state after construction and is safe for
// concurrent use.
type Resolver struct {
	aliases []aliasEntry
	domains []domainEntry
	forces  map[string]model.Force
}

type aliasEntry struct {
	alias   string // lowercased
	forceID string
}

type domainEntry struct {
	domain  string // lowercased
	forceID string
}

// NewResolver builds a resolver from a table. Alias precedence follows
// table declaration order.
func NewResolver(t *Table) *Resolver {
	r := &Resolver{forces: make(map[string]model.Force, len(t.Forces))}
	for _, f := range t.Forces {
		r.forces[f.ID] = f
		for _, a := range f.Aliases {
			r.aliases = append(r.aliases, aliasEntry{
				alias:   strings.ToLower(a),
				forceID: f.ID,
			})
		}
		for _, d := range f.EmailDomains {
			r.domains = append(r.domains, domainEntry{
				domain:  strings.ToLower(d),
				forceID: f.ID,
			})
		}
	}
	return r
}

// ResolveMention returns the force ID whose alias first appears in text,
// matching case-insensitively. First matching alias in table order wins;
// no longest-match or confidence scoring. Returns "" when nothing
// matches — callers treat that as unresolved, not as an error.
func (r *Resolver) ResolveMention(text string) string {
	lowered := strings.ToLower(text)
	for _, e := range r.aliases {
		if strings.Contains(lowered, e.alias) {
			zap.L().Debug("force: resolved mention",
				zap.String("alias", e.alias),
				zap.String("force_id", e.forceID),
			)
			return e.forceID
		}
	}
	return ""
}

// ResolveEmail maps an email address to a force ID via its domain.
// The local part is discarded. An exact domain match is preferred; if
// none exists, the first domain entry contained in the address domain
// (a suffix such as "cid.met.police.uk") is used. Returns "" when
// unresolved.
func (r *Resolver) ResolveEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return ""
	}
	domain := strings.ToLower(email[at+1:])

	for _, e := range r.domains {
		if domain == e.domain {
			return e.forceID
		}
	}
	for _, e := range r.domains {
		if strings.HasSuffix(domain, "."+e.domain) || strings.Contains(domain, e.domain) {
			return e.forceID
		}
	}
	return ""
}

// Force returns the canonical force record for an ID.
func (r *Resolver) Force(id string) (model.Force, bool) {
	f, ok := r.forces[id]
	return f, ok
}

// CanonicalName returns the display name for a force ID, or the ID
// itself when unknown.
func (r *Resolver) CanonicalName(id string) string {
	if f, ok := r.forces[id]; ok {
		return f.CanonicalName
	}
	return id
}
