package apiv1

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const specPath = "../../../" + DefaultSpecPath

func TestLoadSpecValidates(t *testing.T) {
	doc, err := LoadSpec(context.Background(), specPath)
	require.NoError(t, err)
	assert.Equal(t, "Lynqit API", doc.Info.Title)

	ops := Operations(doc)
	assert.Contains(t, ops, "POST /api/analytics/track")
	assert.Contains(t, ops, "PUT /api/pages/:id")
	assert.Contains(t, ops, "GET /health")
}

func TestLoadSpecMissingFile(t *testing.T) {
	_, err := LoadSpec(context.Background(), "does-not-exist.yml")
	assert.Error(t, err)
}

func TestFiberPath(t *testing.T) {
	assert.Equal(t, "/api/pages/:id/analytics", FiberPath("/api/pages/{id}/analytics"))
	assert.Equal(t, "/health", FiberPath("/health"))
}
