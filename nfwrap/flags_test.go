package nfwrap

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uc-cdis/nfwrap/catalog"
)

func descriptor(t *testing.T, name string) catalog.Descriptor {
	c, err := catalog.Default()
	require.NoError(t, err)
	d, ok := c.Lookup(name)
	require.True(t, ok, name)
	return d
}

func TestFlagExamples(t *testing.T) {
	flags, err := Flag(descriptor(t, "with_umi"), true)
	require.NoError(t, err)
	assert.Equal(t, []string{"--with_umi"}, flags)

	flags, err = Flag(descriptor(t, "fastp_min_length"), 17)
	require.NoError(t, err)
	assert.Equal(t, []string{"--fastp_min_length", "17"}, flags)

	flags, err = Flag(descriptor(t, "email"), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{}, flags)
}

func TestFlagBooleanFalse(t *testing.T) {
	flags, err := Flag(descriptor(t, "skip_fastqc"), false)
	require.NoError(t, err)
	assert.Empty(t, flags)
}

func TestFlagAbsentForEveryType(t *testing.T) {
	c, err := catalog.Default()
	require.NoError(t, err)
	for _, d := range c.Descriptors() {
		flags, err := Flag(d, nil)
		require.NoError(t, err, d.Name)
		assert.Empty(t, flags, d.Name)
	}
}

func TestFlagNilRefIsAbsent(t *testing.T) {
	flags, err := Flag(descriptor(t, "fasta"), (*catalog.Ref)(nil))
	require.NoError(t, err)
	assert.Equal(t, []string{}, flags)

	flags, err = Flag(descriptor(t, "fasta"), &catalog.Ref{Remote: "latch:///genome.fa"})
	require.NoError(t, err)
	assert.Equal(t, []string{"--fasta", "latch:///genome.fa"}, flags)
}

func TestFlagValueForms(t *testing.T) {
	cases := []struct {
		name  string
		value interface{}
		want  []string
	}{
		{"protocol", "illumina", []string{"--protocol", "illumina"}},
		{"input", "latch:///samplesheet.csv", []string{"--input", "latch:///samplesheet.csv"}},
		{"input", catalog.Ref{Remote: "latch:///samplesheet.csv", Local: "/root/samplesheet.csv"}, []string{"--input", "latch:///samplesheet.csv"}},
		{"outdir", map[string]interface{}{"remote_path": "latch:///results"}, []string{"--outdir", "latch:///results"}},
		{"fastp_min_length", json.Number("18"), []string{"--fastp_min_length", "18"}},
		{"fastp_min_length", float64(19), []string{"--fastp_min_length", "19"}},
		{"fastp_min_length", int64(-1), []string{"--fastp_min_length", "-1"}},
	}
	for _, c := range cases {
		flags, err := Flag(descriptor(t, c.name), c.value)
		require.NoError(t, err, c.name)
		assert.Equal(t, c.want, flags)
	}
}

func TestFlagTypeMismatch(t *testing.T) {
	cases := []struct {
		name  string
		value interface{}
	}{
		{"with_umi", "true"},
		{"fastp_min_length", "17"},
		{"fastp_min_length", 17.5},
		{"protocol", 3},
		{"input", 42},
	}
	for _, c := range cases {
		_, err := Flag(descriptor(t, c.name), c.value)
		var confErr *ConfigurationError
		assert.True(t, errors.As(err, &confErr), "%v %v", c.name, c.value)
	}
}

func TestFlagDeterministic(t *testing.T) {
	d := descriptor(t, "mirtrace_species")
	first, err := Flag(d, "hsa")
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := Flag(d, "hsa")
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}
