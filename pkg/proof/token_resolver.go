package proof

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/mohae/deepcopy"
	"github.com/prooflab/zenproof/pkg/proof/runtime"
)

var tokenPattern = regexp.MustCompile(`\{\{\s*([^{}]+?)\s*\}\}`)

// defaultMaxPasses bounds the resolver's fixpoint loop so a cyclic template
// becomes a detectable error instead of an infinite loop.
const defaultMaxPasses = 10

// MissingValueMarker is the distinguishable sentinel callers can substitute
// for tokens that resolve to a null value, instead of the empty string.
const MissingValueMarker = "(not set)"

// EnvLookup provides the values {{env.NAME}} tokens resolve to. Routing env
// access through an injected provider keeps the resolver a pure function of
// its inputs.
type EnvLookup interface {
	LookupEnv(name string) (string, bool)
}

// EnvMap is a static EnvLookup backed by a plain map.
type EnvMap map[string]string

func (m EnvMap) LookupEnv(name string) (string, bool) {
	v, ok := m[name]
	return v, ok
}

// ResolveOptions control how token resolution reacts to trouble.
type ResolveOptions struct {
	// SuppressErrors leaves an unresolvable token literally in the output and
	// stops scanning the template at that point, instead of failing.
	SuppressErrors bool
	// MissingText is substituted when a token resolves to a null value.
	// Leave empty for the empty string, or use MissingValueMarker.
	MissingText string
}

// TokenResolver substitutes {{path.to.value}} placeholders against a layered
// token context. Resolution re-scans its own output until no placeholders
// remain, so resolved values may themselves contain further placeholders.
type TokenResolver struct {
	env       EnvLookup
	maxPasses int
}

func NewTokenResolver(env EnvLookup, maxPasses int) *TokenResolver {
	if maxPasses <= 0 {
		maxPasses = defaultMaxPasses
	}
	return &TokenResolver{env: env, maxPasses: maxPasses}
}

// Resolve substitutes every placeholder of template against tc. For
// well-formed acyclic templates the result is free of placeholders and
// re-resolving it returns it unchanged.
func (r *TokenResolver) Resolve(template string, tc *runtime.TokenContext, opts ResolveOptions) (string, error) {
	out := template
	for pass := 0; pass < r.maxPasses; pass++ {
		if !tokenPattern.MatchString(out) {
			return out, nil
		}
		next, halted, err := r.resolvePass(out, tc, opts)
		if err != nil {
			return "", err
		}
		if halted {
			// a suppressed failure ends resolution for this template
			return next, nil
		}
		if next == out {
			return "", &InvalidTokenError{Token: firstToken(out), Reason: "template does not converge"}
		}
		out = next
	}
	return "", &InvalidTokenError{
		Token:  firstToken(out),
		Reason: fmt.Sprintf("template did not converge after %d passes", r.maxPasses),
	}
}

// ResolveValue deep-copies value and substitutes every string leaf of the
// copy. Non-string scalars pass through untouched; slice entries are only
// descended into when they are objects themselves.
func (r *TokenResolver) ResolveValue(value any, tc *runtime.TokenContext, opts ResolveOptions) (any, error) {
	return r.resolveAny(deepcopy.Copy(value), tc, opts)
}

func (r *TokenResolver) resolveAny(v any, tc *runtime.TokenContext, opts ResolveOptions) (any, error) {
	switch t := v.(type) {
	case string:
		return r.Resolve(t, tc, opts)
	case map[string]any:
		for k, mv := range t {
			nv, err := r.resolveAny(mv, tc, opts)
			if err != nil {
				return nil, err
			}
			t[k] = nv
		}
		return t, nil
	case []any:
		for i, ev := range t {
			if m, ok := ev.(map[string]any); ok {
				nv, err := r.resolveAny(m, tc, opts)
				if err != nil {
					return nil, err
				}
				t[i] = nv
			}
		}
		return t, nil
	}
	return v, nil
}

// resolvePass substitutes tokens left to right in a single scan. When a token
// fails to resolve and errors are suppressed, the substitutions made so far
// are kept, the rest of the template stays untouched and halted is true.
func (r *TokenResolver) resolvePass(s string, tc *runtime.TokenContext, opts ResolveOptions) (out string, halted bool, err error) {
	var b strings.Builder
	idx := 0
	for _, m := range tokenPattern.FindAllStringSubmatchIndex(s, -1) {
		start, end := m[0], m[1]
		token := s[m[2]:m[3]]
		val, lerr := r.lookup(token, tc)
		if lerr != nil {
			if opts.SuppressErrors {
				b.WriteString(s[idx:])
				return b.String(), true, nil
			}
			return "", false, lerr
		}
		b.WriteString(s[idx:start])
		if val == nil {
			b.WriteString(opts.MissingText)
		} else {
			b.WriteString(formatScalar(val))
		}
		idx = end
	}
	b.WriteString(s[idx:])
	return b.String(), false, nil
}

// lookup walks a dot-separated token path through the context. env.* paths
// route to the injected environment provider. An absent segment, a non-scope
// intermediate and an object-valued result are resolution failures; a segment
// present with a null value yields nil and the missing-value default applies.
func (r *TokenResolver) lookup(token string, tc *runtime.TokenContext) (any, error) {
	path := strings.Split(token, ".")
	if path[0] == "env" && len(path) > 1 {
		name := strings.Join(path[1:], ".")
		if r.env == nil {
			return nil, &InvalidTokenError{Token: token, Reason: "no environment provider configured"}
		}
		val, ok := r.env.LookupEnv(name)
		if !ok {
			return nil, &InvalidTokenError{Token: token, Reason: fmt.Sprintf("environment variable %s is not set", name)}
		}
		return val, nil
	}

	scope, ok := tc.Scope(path[0])
	if !ok {
		return nil, &InvalidTokenError{Token: token, Reason: fmt.Sprintf("unknown scope %s", path[0])}
	}
	cur := scope
	for i, seg := range path[1:] {
		next, found, nested := childValue(cur, seg)
		if !nested {
			return nil, &InvalidTokenError{
				Token:  token,
				Reason: fmt.Sprintf("%s is not a nested scope", strings.Join(path[:i+1], ".")),
			}
		}
		if !found {
			return nil, &InvalidTokenError{
				Token:  token,
				Reason: fmt.Sprintf("%s is missing", strings.Join(path[:i+2], ".")),
			}
		}
		cur = next
	}
	switch cur.(type) {
	case map[string]any, map[string]string:
		return nil, &InvalidTokenError{Token: token, Reason: "value is an object and cannot be embedded in a string"}
	}
	return cur, nil
}

// childValue descends one path segment. nested is false when cur cannot act
// as a scope at all; slices, dates and big numbers fall into that bucket.
func childValue(cur any, seg string) (val any, found bool, nested bool) {
	switch m := cur.(type) {
	case map[string]any:
		v, f := m[seg]
		return v, f, true
	case map[string]string:
		v, f := m[seg]
		return v, f, true
	}
	return nil, false, false
}

func formatScalar(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case time.Time:
		return t.Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func firstToken(s string) string {
	if m := tokenPattern.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return s
}
