// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package terravision

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/repodoc/services/docgen/adapter"
	"github.com/AleutianAI/repodoc/services/docgen/adapters/shell"
)

const sampleTfData = `{
	"graphdict": {
		"aws_s3_bucket.data": ["aws_lambda_function.processor"],
		"aws_lambda_function.processor": ["aws_dynamodb_table.results"],
		"aws_dynamodb_table.results": []
	},
	"meta_data": {
		"aws_s3_bucket.data": {
			"bucket": "data-bucket",
			"arn": "arn:aws:s3:::data-bucket",
			"versioning": true,
			"tags": {},
			"region": "us-east-1"
		}
	},
	"plandata": {
		"variables": {
			"environment": {"value": "prod"}
		}
	}
}`

func writeTf(t *testing.T, dir string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.tf"), []byte(`resource "aws_s3_bucket" "data" {}`), 0o644))
}

// drawRun fakes terravision: version calls succeed, draw calls write the
// given tfdata payload into the working directory.
func drawRun(t *testing.T, tfdata string) shell.RunFunc {
	return func(_ context.Context, _ time.Duration, dir, _ string, args ...string) (shell.Result, error) {
		if args[0] == "--version" {
			return shell.Result{Stdout: "terravision 0.9.1"}, nil
		}
		require.Equal(t, "draw", args[0])
		if tfdata != "" {
			require.NoError(t, os.WriteFile(filepath.Join(dir, "tfdata.json"), []byte(tfdata), 0o644))
		}
		return shell.Result{}, nil
	}
}

func TestExecuteTransformsGraph(t *testing.T) {
	dir := t.TempDir()
	writeTf(t, dir)

	a := New()
	a.run = drawRun(t, sampleTfData)

	infra, err := a.Execute(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 3, infra.Graph.NodeCount())
	assert.Equal(t, 2, infra.Graph.ConnectionCount())
	assert.Equal(t, []string{"aws"}, infra.Graph.CloudProviders)

	bucket := infra.Graph.Nodes["aws_s3_bucket.data"]
	assert.Equal(t, "aws_s3_bucket", bucket.Type)
	assert.Equal(t, "aws", bucket.Provider)
	assert.Equal(t, "data", bucket.Name)
	// Computed placeholder, arn, and empty collection filtered out.
	assert.Equal(t, map[string]string{
		"bucket": "data-bucket",
		"region": "us-east-1",
	}, bucket.Attributes)

	assert.Equal(t, []string{"aws_lambda_function.processor"},
		infra.Graph.ConnectionsFrom("aws_s3_bucket.data"))

	require.NotNil(t, infra.Source)
	assert.Equal(t, []string{"main.tf"}, infra.Source.SourceFiles)
	assert.Equal(t, "terraform", infra.Source.SourceType)
	assert.Equal(t, "prod", infra.Source.Metadata["terraform_variable.environment"])

	// Scratch files cleaned up.
	_, err = os.Stat(filepath.Join(dir, "tfdata.json"))
	assert.True(t, os.IsNotExist(err))
}

func TestExecuteNoTerraformFiles(t *testing.T) {
	a := New()
	a.run = func(context.Context, time.Duration, string, string, ...string) (shell.Result, error) {
		t.Fatal("terravision must not run without terraform files")
		return shell.Result{}, nil
	}

	infra, err := a.Execute(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 0, infra.Graph.NodeCount())
	assert.Empty(t, infra.Source.SourceFiles)
}

func TestExecuteToolMissing(t *testing.T) {
	dir := t.TempDir()
	writeTf(t, dir)

	a := New()
	a.run = func(context.Context, time.Duration, string, string, ...string) (shell.Result, error) {
		return shell.Result{ExitCode: -1}, errors.New("not found")
	}

	_, err := a.Execute(context.Background(), dir)
	assert.True(t, adapter.IsNotAvailable(err))
}

func TestExecuteNoGraphOutput(t *testing.T) {
	dir := t.TempDir()
	writeTf(t, dir)

	a := New()
	a.run = drawRun(t, "")

	_, err := a.Execute(context.Background(), dir)

	var execErr *adapter.ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Contains(t, execErr.Message, "no graph output")
}

func TestFindTerraformFilesSkipsCache(t *testing.T) {
	dir := t.TempDir()
	writeTf(t, dir)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "modules", "net"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "modules", "net", "vpc.tf"), []byte(""), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".terraform", "providers"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".terraform", "providers", "cached.tf"), []byte(""), 0o644))

	files := findTerraformFiles(dir)
	assert.Equal(t, []string{"main.tf", filepath.Join("modules", "net", "vpc.tf")}, files)
}

func TestProviderFor(t *testing.T) {
	assert.Equal(t, "aws", providerFor("aws_s3_bucket"))
	assert.Equal(t, "gcp", providerFor("google_compute_instance"))
	assert.Equal(t, "azure", providerFor("azurerm_storage_account"))
	assert.Equal(t, "kubernetes", providerFor("helm_release"))
	assert.Equal(t, "unknown", providerFor("mystery_resource"))
}
