package clustertype

import (
	"log/slog"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

const catalogueRoot = "/cluster-types"

const networkComponent = `
heat_template_version: 2021-04-16
resources:
  router:
    type: OS::Neutron::Router
  network:
    type: OS::Neutron::Net
`

var (
	baseTime = time.Date(2023, 8, 14, 12, 0, 0, 0, time.UTC)
	noFiles  = map[string]string{}
)

// catalogue is an in-memory cluster type catalogue.
type catalogue struct {
	t  *testing.T
	fs afero.Fs
}

func newCatalogue(t *testing.T) *catalogue {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll(catalogueRoot, 0o755))
	return &catalogue{t: t, fs: fs}
}

// write writes a file relative to the catalogue root and sets its modification time.
func (c *catalogue) write(path, content string, modTime time.Time) {
	c.t.Helper()
	fullPath := filepath.Join(catalogueRoot, path)
	require.NoError(c.t, c.fs.MkdirAll(filepath.Dir(fullPath), 0o755))
	require.NoError(c.t, afero.WriteFile(c.fs, fullPath, []byte(content), 0o644))
	require.NoError(c.t, c.fs.Chtimes(fullPath, modTime, modTime))
}

// writeHeat writes a heat cluster type with the given components, each a name to content pair.
func (c *catalogue) writeHeat(id, definition, parameters string, components map[string]string) {
	c.t.Helper()
	c.write(filepath.Join(id, definitionFileName), definition, baseTime)
	c.write(filepath.Join(id, parametersFileName), parameters, baseTime)
	for name, content := range components {
		c.write(filepath.Join(id, componentsDirName, name+".yaml"), content, baseTime)
	}
}

func (c *catalogue) repository(fetcher Fetcher) *Repository {
	return NewRepository(slog.New(slog.DiscardHandler), c.fs, catalogueRoot, fetcher)
}

func (c *catalogue) find(id string) *ClusterType {
	c.t.Helper()
	clusterType, err := c.repository(nil).Find(c.t.Context(), id)
	require.NoError(c.t, err)
	return clusterType
}

func ids(clusterTypes []*ClusterType) []string {
	ids := make([]string, len(clusterTypes))
	for i, clusterType := range clusterTypes {
		ids[i] = clusterType.ID
	}
	return ids
}

func magnumDefinitionYAML(title string, order int) string {
	return `
title: ` + title + `
description: a magnum cluster
kind: magnum
magnum_cluster_template: kubernetes-1.27
order: ` + strconv.Itoa(order) + `
logo_url: /images/kubernetes.svg
parameters:
  node_count:
    type: number
    label: Number of nodes
    default: 2
`
}
