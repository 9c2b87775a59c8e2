package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const magnumDefinition = `
title: Kubernetes
description: a magnum cluster
kind: magnum
magnum_cluster_template: kubernetes-1.27
order: 1
logo_url: /images/kubernetes.svg
parameters:
  node_count:
    type: number
    default: 2
`

func TestLint(t *testing.T) {
	write := func(t *testing.T, root, path, content string) {
		t.Helper()
		path = filepath.Join(root, path)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	lint := func(args ...string) (string, error) {
		var out bytes.Buffer
		cmd := newCommand()
		cmd.SetArgs(args)
		cmd.SetOut(&out)
		cmd.SetErr(&bytes.Buffer{})
		err := cmd.Execute()
		return out.String(), err
	}

	t.Run("Valid", func(t *testing.T) {
		root := t.TempDir()
		write(t, root, "k8s/cluster-type.yaml", magnumDefinition)

		out, err := lint(root)

		require.NoError(t, err)
		assert.Empty(t, out)
	})

	t.Run("Invalid", func(t *testing.T) {
		root := t.TempDir()
		write(t, root, "k8s/cluster-type.yaml", magnumDefinition)
		write(t, root, "broken/cluster-type.yaml", "title: [unclosed")

		out, err := lint(root)

		assert.EqualError(t, err, "1 invalid cluster types")
		assert.Contains(t, out, "broken: ")
		assert.NotContains(t, out, "k8s")
	})

	t.Run("InvalidID", func(t *testing.T) {
		root := t.TempDir()
		write(t, root, "k8s/cluster-type.yaml", magnumDefinition)
		write(t, root, "K8s.Old/cluster-type.yaml", magnumDefinition)

		out, err := lint(root)

		assert.EqualError(t, err, "1 invalid cluster types")
		assert.Contains(t, out, "K8s.Old: ")
		assert.Contains(t, out, "not a valid id")
	})

	t.Run("MissingDirectory", func(t *testing.T) {
		_, err := lint()

		assert.Error(t, err)
	})
}
