package clustertype

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"github.com/spf13/afero"
	"golang.org/x/exp/slices"

	"github.com/openflighthpc/cluster-builder/internal/errdef"
)

// NewRepository creates a repository of the cluster types found below root on fs. Remote
// templates referenced by components are fetched using fetcher, which may be nil.
func NewRepository(logger *slog.Logger, fs afero.Fs, root string, fetcher Fetcher) *Repository {
	return &Repository{
		logger: logger,
		fs:     fs,
		root:   root,
		factories: map[Kind]factory{
			KindHeat: heatFactory{
				fs:         fs,
				components: componentLoader{fs: fs, fetcher: fetcher},
			},
			KindMagnum: upstreamFactory{kind: KindMagnum},
			KindSahara: upstreamFactory{kind: KindSahara},
		},
	}
}

// Repository loads cluster types from the catalogue. Nothing is cached.
type Repository struct {
	logger    *slog.Logger
	fs        afero.Fs
	root      string
	factories map[Kind]factory
}

// List returns every valid cluster type sorted by order and id. Invalid cluster types are logged
// and skipped.
func (r *Repository) List(ctx context.Context) ([]*ClusterType, error) {
	ids, _, err := r.ids(ctx)
	if err != nil {
		return nil, err
	}

	var clusterTypes []*ClusterType
	for _, id := range ids {
		clusterType, err := r.load(ctx, id, r.definitionPath(id))
		if err != nil {
			r.logLoadError(ctx, id, err)
			continue
		}
		clusterTypes = append(clusterTypes, clusterType)
	}

	slices.SortFunc(clusterTypes, func(a, b *ClusterType) int {
		if a.Order != b.Order {
			return a.Order - b.Order
		}
		return strings.Compare(a.ID, b.ID)
	})
	return clusterTypes, nil
}

// Check loads every cluster type of the catalogue and returns the load error of each invalid one
// keyed by id. Directories skipped by List because their name is not a valid id are reported too.
func (r *Repository) Check(ctx context.Context) (map[string]error, error) {
	ids, invalidIDs, err := r.ids(ctx)
	if err != nil {
		return nil, err
	}

	loadErrors := make(map[string]error)
	for _, id := range invalidIDs {
		loadErrors[id] = newLoadError(r.definitionPath(id), "%q is not a valid id, use lowercase letters, digits and hyphens", id)
	}
	for _, id := range ids {
		if _, err := r.load(ctx, id, r.definitionPath(id)); err != nil {
			loadErrors[id] = err
		}
	}
	return loadErrors, nil
}

// ids returns the names of the directories below root holding a definition. Names that are not
// slugs are returned separately as invalid.
func (r *Repository) ids(ctx context.Context) (ids, invalid []string, err error) {
	entries, err := afero.ReadDir(r.fs, r.root)
	if err != nil {
		return nil, nil, fmt.Errorf("error reading cluster types directory %q: %v", r.root, err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		id := entry.Name()
		if exists, err := afero.Exists(r.fs, r.definitionPath(id)); err != nil || !exists {
			continue
		}
		if !slug.IsSlug(id) {
			r.logger.WarnContext(ctx, "Skipping cluster type with invalid id", "id", id)
			invalid = append(invalid, id)
			continue
		}
		ids = append(ids, id)
	}
	return ids, invalid, nil
}

func (r *Repository) definitionPath(id string) string {
	return filepath.Join(r.root, id, definitionFileName)
}

// Find returns the cluster type with the given id. An invalid cluster type is not found.
func (r *Repository) Find(ctx context.Context, id string) (*ClusterType, error) {
	notFound := errdef.NewNotFound("Unknown cluster type: %s", id)
	if !slug.IsSlug(id) {
		return nil, notFound
	}

	path := r.definitionPath(id)
	r.logger.InfoContext(ctx, "Finding cluster type", "id", id, "path", path)
	clusterType, err := r.load(ctx, id, path)
	if err != nil {
		r.logLoadError(ctx, id, err)
		return nil, notFound
	}
	return clusterType, nil
}

func (r *Repository) load(ctx context.Context, id, path string) (*ClusterType, error) {
	data, lastModified, err := readFile(r.fs, path)
	if err != nil {
		return nil, err
	}

	node, err := documentNode(data)
	if err != nil {
		return nil, newLoadError(path, "%v", err)
	}
	var definition definition
	if err := decode(node, &definition); err != nil {
		return nil, newLoadError(path, "%v", err)
	}

	f, ok := r.factories[definition.Kind]
	if !ok {
		r.logger.ErrorContext(ctx, "Unhandled cluster type kind", "id", id, "kind", definition.Kind)
		return nil, newLoadError(path, "unhandled kind %q", definition.Kind)
	}
	return f.load(ctx, id, path, node, lastModified)
}

func (r *Repository) logLoadError(ctx context.Context, id string, err error) {
	var networkErr *NetworkNotFoundError
	if errors.As(err, &networkErr) {
		r.logger.WarnContext(ctx, "Cluster type does not define a private network", "id", id, "error", err)
		return
	}
	r.logger.ErrorContext(ctx, "Loading cluster type failed", "id", id, "error", err)
}

// LastModified returns the latest modification time of the given cluster types.
func LastModified(clusterTypes ...*ClusterType) time.Time {
	var lastModified time.Time
	for _, clusterType := range clusterTypes {
		if clusterType.LastModified.After(lastModified) {
			lastModified = clusterType.LastModified
		}
	}
	return lastModified
}
