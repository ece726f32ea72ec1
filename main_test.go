package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uc-cdis/nfwrap/catalog"
	"github.com/uc-cdis/nfwrap/nfwrap"
	"github.com/urfave/cli"
)

func TestLoadValues(t *testing.T) {
	cat, err := catalog.Default()
	require.NoError(t, err)

	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "values.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"input": "latch:///samplesheet.csv", "fastp_min_length": 20, "email": null}`), 0644))

	values, err := loadValues(cat, jsonPath, []string{"with_umi=true", "fastp_min_length=18", "protocol=123", "mirtrace_species=null"})
	require.NoError(t, err)
	assert.Equal(t, "latch:///samplesheet.csv", values["input"])
	assert.Equal(t, 18, values["fastp_min_length"])
	assert.Equal(t, true, values["with_umi"])
	assert.Equal(t, "123", values["protocol"])
	assert.Contains(t, values, "email")
	assert.Nil(t, values["email"])
	assert.Contains(t, values, "mirtrace_species")
	assert.Nil(t, values["mirtrace_species"])

	flags, err := nfwrap.Flag(mustLookup(t, cat, "protocol"), values["protocol"])
	require.NoError(t, err)
	assert.Equal(t, []string{"--protocol", "123"}, flags)

	yamlPath := filepath.Join(dir, "values.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("outdir:\n  remote_path: latch:///results\nfastp_min_length: 17\n"), 0644))
	values, err = loadValues(cat, yamlPath, nil)
	require.NoError(t, err)
	flags, err = nfwrap.Flag(mustLookup(t, cat, "outdir"), values["outdir"])
	require.NoError(t, err)
	assert.Equal(t, []string{"--outdir", "latch:///results"}, flags)
	assert.Equal(t, 17, values["fastp_min_length"])

	_, err = loadValues(cat, "", []string{"no-equals-sign"})
	assert.Error(t, err)
}

func TestLoadValuesKeepsJSONIntegersExact(t *testing.T) {
	cat, err := catalog.Default()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "values.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"fastp_max_length": 100}`), 0644))
	values, err := loadValues(cat, path, nil)
	require.NoError(t, err)
	assert.Equal(t, json.Number("100"), values["fastp_max_length"])
}

func mustLookup(t *testing.T, cat *catalog.Catalog, name string) catalog.Descriptor {
	d, ok := cat.Lookup(name)
	require.True(t, ok)
	return d
}

func TestExitError(t *testing.T) {
	assert.Nil(t, exitError(nil))

	err := exitError(&nfwrap.EngineExecutionError{ExitCode: 3})
	exitCoder, ok := err.(cli.ExitCoder)
	require.True(t, ok)
	assert.Equal(t, 3, exitCoder.ExitCode())

	err = exitError(&nfwrap.ProvisioningError{StatusCode: 500})
	exitCoder, ok = err.(cli.ExitCoder)
	require.True(t, ok)
	assert.Equal(t, 1, exitCoder.ExitCode())
}

func TestPrintCatalog(t *testing.T) {
	cat, err := catalog.Default()
	require.NoError(t, err)

	out := &bytes.Buffer{}
	require.NoError(t, printCatalog(out, cat))
	assert.Contains(t, out.String(), "Input/output options")
	assert.Contains(t, out.String(), "--fastp_min_length")
	assert.Contains(t, out.String(), "optional<integer>")
}
