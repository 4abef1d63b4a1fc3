package para

import (
	"strings"

	"github.com/averlund/orion/internal/apperr"
)

// Scheme is the URI scheme of logical addresses.
const Scheme = "para"

// DefaultRoot is the default namespace root directory name.
const DefaultRoot = "Orion"

// Resolver translates logical addresses into physical paths under the
// namespace root and back. Physical paths are home-relative and always
// begin with the root directory name.
type Resolver struct {
	root string
}

// NewResolver creates a resolver for the given root directory name.
// An empty root selects DefaultRoot.
func NewResolver(root string) *Resolver {
	if root == "" {
		root = DefaultRoot
	}
	return &Resolver{root: root}
}

// Root returns the namespace root directory name.
func (r *Resolver) Root() string { return r.root }

// Resolve translates a logical address into a home-relative physical path.
// Three address forms are accepted:
//
//	para://category/segments...   (scheme-prefixed URI)
//	Orion/Category/segments...    (namespace-rooted path)
//	category/segments...          (category-relative path)
//
// Category names match case-insensitively; the physical form uses the
// canonical directory name. For entity categories the storage extension
// is appended to the final segment exactly once. Repeated and trailing
// separators are normalized; all other characters pass through verbatim.
func (r *Resolver) Resolve(address string) (string, error) {
	addr := strings.TrimSpace(address)

	if i := strings.Index(addr, "://"); i >= 0 {
		if !strings.EqualFold(addr[:i], Scheme) {
			return "", apperr.E(apperr.CodeNotParaPath, "unsupported scheme %q in %q", addr[:i], address)
		}
		addr = addr[i+len("://"):]
	} else if strings.HasPrefix(addr, "/") {
		return "", apperr.E(apperr.CodeNotParaPath, "absolute path is not a logical address: %q", address)
	}

	segs := splitSegments(addr)
	if len(segs) == 0 {
		// Empty address resolves to the namespace root.
		return r.root, nil
	}

	// Namespace-rooted form: strip the leading root name.
	if strings.EqualFold(segs[0], r.root) {
		segs = segs[1:]
		if len(segs) == 0 {
			return r.root, nil
		}
	}

	cat, err := ParseCategory(segs[0])
	if err != nil {
		return "", err
	}
	rest := segs[1:]

	// Resources/<subtype>/... addresses promote to the subtype category.
	if cat == Resources && len(rest) > 0 {
		if sub, subErr := ParseCategory(rest[0]); subErr == nil && sub.IsEntity() {
			cat = sub
			rest = rest[1:]
		}
	}

	if cat.IsEntity() && len(rest) > 0 {
		last := rest[len(rest)-1]
		if !strings.HasSuffix(last, Extension) {
			rest[len(rest)-1] = last + Extension
		}
	}

	parts := append([]string{r.root, cat.Dir()}, rest...)
	return strings.Join(parts, "/"), nil
}

// ToLogicalAddress is the best-effort inverse of Resolve: it maps a
// home-relative physical path back to a para:// address. For any path
// produced by Resolve, Resolve(ToLogicalAddress(p)) == p.
func (r *Resolver) ToLogicalAddress(path string) (string, error) {
	segs := splitSegments(path)
	if len(segs) == 0 {
		return "", apperr.E(apperr.CodeNotParaPath, "empty path")
	}
	if !strings.EqualFold(segs[0], r.root) {
		return "", apperr.E(apperr.CodeNotParaPath, "path %q is outside namespace root %q", path, r.root)
	}
	rest := strings.Join(segs[1:], "/")
	if rest == "" {
		return Scheme + "://", nil
	}

	cat, err := CategoryOf(rest)
	if err != nil {
		return "", err
	}
	tail := strings.TrimPrefix(strings.TrimPrefix(rest, cat.Dir()), "/")
	if tail == "" {
		return Scheme + "://" + string(cat), nil
	}
	return Scheme + "://" + string(cat) + "/" + tail, nil
}

// IndexPathFor returns the home-relative index file path for a category.
func (r *Resolver) IndexPathFor(cat Category) string {
	return r.root + "/" + cat.IndexPath()
}

// CategoryOfPath infers the category of a home-relative physical path.
func (r *Resolver) CategoryOfPath(path string) (Category, error) {
	segs := splitSegments(path)
	if len(segs) == 0 || !strings.EqualFold(segs[0], r.root) {
		return "", apperr.E(apperr.CodeNotParaPath, "path %q is outside namespace root %q", path, r.root)
	}
	return CategoryOf(strings.Join(segs[1:], "/"))
}

// UnderArchive reports whether a home-relative path lies in the Archive
// category.
func (r *Resolver) UnderArchive(path string) bool {
	cat, err := r.CategoryOfPath(path)
	return err == nil && cat == Archive
}

// splitSegments normalizes separators: it splits on "/" and drops empty
// segments, which collapses repeated separators and trims trailing ones.
// Spaces, dots, and unicode inside segments are preserved verbatim.
func splitSegments(s string) []string {
	var out []string
	for _, seg := range strings.Split(strings.ReplaceAll(s, "\\", "/"), "/") {
		if seg != "" {
			out = append(out, seg)
		}
	}
	return out
}
