package clustertype

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/dominikbraun/graph"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

const fileScheme = "file://"

// referenceResolver inlines the files referenced by a HOT template. Every get_file value and
// every type naming a template file is rewritten to an absolute reference. The content of each
// referenced file is collected in files under that reference. Referenced templates are resolved
// recursively. The references between templates form a graph that must not have cycles.
type referenceResolver struct {
	fs         afero.Fs
	fetcher    Fetcher
	files      map[string]string
	references graph.Graph[string, string]
}

func newReferenceResolver(fs afero.Fs, fetcher Fetcher) *referenceResolver {
	return &referenceResolver{
		fs:         fs,
		fetcher:    fetcher,
		files:      make(map[string]string),
		references: graph.New(graph.StringHash, graph.Directed(), graph.PreventCycles()),
	}
}

// resolve returns a copy of value with every reference rewritten. Relative references are
// resolved relative to from, the absolute reference of the file value is part of.
func (r *referenceResolver) resolve(ctx context.Context, value any, from string) (any, error) {
	switch v := value.(type) {
	case map[string]any:
		resolved := make(map[string]any, len(v))
		for key, item := range v {
			ref, isString := item.(string)
			switch {
			case key == "get_file" && isString:
				abs, err := r.file(ctx, ref, from)
				if err != nil {
					return nil, err
				}
				resolved[key] = abs
			case key == "type" && isString && isTemplateReference(ref):
				abs, err := r.template(ctx, ref, from)
				if err != nil {
					return nil, err
				}
				resolved[key] = abs
			default:
				item, err := r.resolve(ctx, item, from)
				if err != nil {
					return nil, err
				}
				resolved[key] = item
			}
		}
		return resolved, nil
	case []any:
		resolved := make([]any, len(v))
		for i, item := range v {
			item, err := r.resolve(ctx, item, from)
			if err != nil {
				return nil, err
			}
			resolved[i] = item
		}
		return resolved, nil
	default:
		return value, nil
	}
}

func (r *referenceResolver) resolveMap(ctx context.Context, m map[string]any, from string) (map[string]any, error) {
	if m == nil {
		return map[string]any{}, nil
	}
	resolved, err := r.resolve(ctx, m, from)
	if err != nil {
		return nil, err
	}
	return resolved.(map[string]any), nil
}

// file stores the content of the file referenced by ref and returns its absolute reference.
func (r *referenceResolver) file(ctx context.Context, ref, from string) (string, error) {
	abs, err := absoluteReference(ref, referenceBase(from))
	if err != nil {
		return "", err
	}
	if _, ok := r.files[abs]; ok {
		return abs, nil
	}

	content, err := r.read(ctx, abs)
	if err != nil {
		return "", err
	}
	r.files[abs] = string(content)
	return abs, nil
}

// template stores the resolved template referenced by ref and returns its absolute reference.
func (r *referenceResolver) template(ctx context.Context, ref, from string) (string, error) {
	abs, err := absoluteReference(ref, referenceBase(from))
	if err != nil {
		return "", err
	}
	if err := r.reference(from, abs); err != nil {
		return "", err
	}
	if _, ok := r.files[abs]; ok {
		return abs, nil
	}

	content, err := r.read(ctx, abs)
	if err != nil {
		return "", err
	}
	var nested map[string]any
	if err := yaml.Unmarshal(content, &nested); err != nil {
		return "", fmt.Errorf("failed to parse template %q: %v", abs, err)
	}

	resolved, err := r.resolveMap(ctx, nested, abs)
	if err != nil {
		return "", err
	}
	out, err := yaml.Marshal(resolved)
	if err != nil {
		return "", err
	}
	r.files[abs] = string(out)
	return abs, nil
}

// reference records that the template from references the template to.
func (r *referenceResolver) reference(from, to string) error {
	for _, vertex := range []string{from, to} {
		if err := r.references.AddVertex(vertex); err != nil && !errors.Is(err, graph.ErrVertexAlreadyExists) {
			return fmt.Errorf("failed adding template %q: %v", vertex, err)
		}
	}

	err := r.references.AddEdge(from, to)
	if errors.Is(err, graph.ErrEdgeCreatesCycle) {
		return fmt.Errorf("template %q references %q which creates a cycle", from, to)
	}
	if err != nil && !errors.Is(err, graph.ErrEdgeAlreadyExists) {
		return fmt.Errorf("failed adding reference from %q to %q: %v", from, to, err)
	}
	return nil
}

func (r *referenceResolver) read(ctx context.Context, abs string) ([]byte, error) {
	if path, ok := strings.CutPrefix(abs, fileScheme); ok {
		content, err := afero.ReadFile(r.fs, path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %q: %v", path, err)
		}
		return content, nil
	}
	if r.fetcher == nil {
		return nil, fmt.Errorf("failed to fetch %q: remote references are not supported", abs)
	}
	return r.fetcher.Fetch(ctx, abs)
}

func isTemplateReference(ref string) bool {
	for _, suffix := range []string{".yaml", ".yml", ".template"} {
		if strings.HasSuffix(ref, suffix) {
			return true
		}
	}
	return false
}

func isRemote(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

// absoluteReference resolves ref against base. Local files are referenced by file URL.
func absoluteReference(ref, base string) (string, error) {
	switch {
	case isRemote(ref), strings.HasPrefix(ref, fileScheme):
		return ref, nil
	case isRemote(base):
		baseURL, err := url.Parse(base)
		if err != nil {
			return "", fmt.Errorf("invalid base %q: %v", base, err)
		}
		refURL, err := url.Parse(ref)
		if err != nil {
			return "", fmt.Errorf("invalid reference %q: %v", ref, err)
		}
		return baseURL.ResolveReference(refURL).String(), nil
	case filepath.IsAbs(ref):
		return fileScheme + filepath.Clean(ref), nil
	default:
		return fileScheme + filepath.Join(base, ref), nil
	}
}

// referenceBase returns what references within the file referenced by abs are relative to.
func referenceBase(abs string) string {
	if path, ok := strings.CutPrefix(abs, fileScheme); ok {
		return filepath.Dir(path)
	}
	// a trailing slash makes url.ResolveReference resolve relative to the directory
	return abs[:strings.LastIndex(abs, "/")+1]
}
