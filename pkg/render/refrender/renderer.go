package refrender

import (
	"context"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/kform-dev/kstack/pkg/render"
	"k8s.io/apimachinery/pkg/util/sets"
)

const (
	// AddressPattern matches <type>.<name>
	AddressPattern = `[a-z][a-z0-9_]*\.[A-Za-z0-9][A-Za-z0-9_.:\-]*`
	outputPattern  = `[A-Za-z][A-Za-z0-9]*`
	refPattern     = `(` + AddressPattern + `)\.(` + outputPattern + `)`
)

var (
	// tokens are only minted by Reference.Token, the marker is unique per
	// process so literal text can never be taken for a reference
	marker    = "@" + strings.ReplaceAll(uuid.NewString(), "-", "") + "{"
	tokenExpr = regexp.MustCompile(regexp.QuoteMeta(marker) + refPattern + `\}`)
	// refExpr matches ${<type>.<name>.<output>} and the escaped $${...} form
	refExpr = regexp.MustCompile(`\$?\$\{` + refPattern + `\}`)
)

// Reference is one output of a declaration used by another declaration.
type Reference struct {
	Address string
	Output  string
}

// String returns the ${address.output} placeholder the engine resolves.
func (r Reference) String() string {
	return "${" + r.Address + "." + r.Output + "}"
}

// Token returns the internal form of the reference embedded in declaration
// specs. Publish turns it into the placeholder.
func (r Reference) Token() string {
	return marker + r.Address + "." + r.Output + "}"
}

// FindTokens returns the references minted by Token in s in order of
// appearance.
func FindTokens(s string) []Reference {
	refs := []Reference{}
	for _, m := range tokenExpr.FindAllStringSubmatch(s, -1) {
		refs = append(refs, Reference{Address: m[1], Output: m[2]})
	}
	return refs
}

// Publish rewrites s for the engine: literal "${" is escaped as "$${" and
// tokens become ${address.output} placeholders.
func Publish(s string) string {
	s = strings.ReplaceAll(s, "${", "$${")
	return tokenExpr.ReplaceAllStringFunc(s, func(match string) string {
		m := tokenExpr.FindStringSubmatch(match)
		return Reference{Address: m[1], Output: m[2]}.String()
	})
}

type ReferenceRenderer interface {
	render.Renderer
	// GetDependencies returns the addresses of all referenced declarations
	GetDependencies(ctx context.Context) sets.Set[string]
	// GetReferences returns every address/output pair found
	GetReferences(ctx context.Context) sets.Set[Reference]
}

type renderer struct {
	render.Renderer
	deps sets.Set[string]
	refs sets.Set[Reference]
}

// New returns a renderer that collects the tokens of a generic document and
// returns the published document.
func New() ReferenceRenderer {
	r := &renderer{
		deps: sets.New[string](),
		refs: sets.New[Reference](),
	}
	r.Renderer = render.New(r.renderFn, r.stringRenderer)
	return r
}

func (r *renderer) GetDependencies(ctx context.Context) sets.Set[string] {
	return r.deps
}

func (r *renderer) GetReferences(ctx context.Context) sets.Set[Reference] {
	return r.refs
}

func (r *renderer) renderFn(ctx context.Context, x any) (any, error) {
	return r.Render(ctx, x)
}

func (r *renderer) stringRenderer(ctx context.Context, expr string) (any, error) {
	for _, ref := range FindTokens(expr) {
		r.deps.Insert(ref.Address)
		r.refs.Insert(ref)
	}
	return Publish(expr), nil
}

// FindReferences returns the placeholders of a published string in order of
// appearance. Escaped placeholders are skipped.
func FindReferences(s string) []Reference {
	refs := []Reference{}
	for _, m := range refExpr.FindAllStringSubmatch(s, -1) {
		if strings.HasPrefix(m[0], "$$") {
			continue
		}
		refs = append(refs, Reference{Address: m[1], Output: m[2]})
	}
	return refs
}

// Substitute replaces every placeholder of a published string with the value
// returned by fn. Placeholders for which fn reports false are kept as is,
// escaped ones become literal text.
func Substitute(s string, fn func(ref Reference) (string, bool)) string {
	return refExpr.ReplaceAllStringFunc(s, func(match string) string {
		if strings.HasPrefix(match, "$$") {
			return match[1:]
		}
		m := refExpr.FindStringSubmatch(match)
		v, ok := fn(Reference{Address: m[1], Output: m[2]})
		if !ok {
			return match
		}
		return v
	})
}
