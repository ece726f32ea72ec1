package catalog

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	assert.Equal(t, "nf_nf_core_smrnaseq", c.Pipeline())
	assert.Equal(t, 50, c.Len())

	params := c.Descriptors()
	assert.Equal(t, "input", params[0].Name)
	assert.Equal(t, "protocol", params[1].Name)
	assert.Equal(t, "outdir", params[2].Name)
	assert.Equal(t, "multiqc_methods_description", params[len(params)-1].Name)

	input, ok := c.Lookup("input")
	require.True(t, ok)
	assert.Equal(t, Type{Kind: File}, input.Type)
	assert.True(t, input.Required())

	outdir, _ := c.Lookup("outdir")
	assert.True(t, outdir.Output)
	assert.Equal(t, Directory, outdir.Type.Kind)

	minLength, _ := c.Lookup("fastp_min_length")
	assert.Equal(t, 17, minLength.Default)
	assert.False(t, minLength.Required())

	skip, _ := c.Lookup("skip_umi_extract_before_dedup")
	assert.Equal(t, true, skip.Default)

	email, _ := c.Lookup("email")
	assert.False(t, email.HasDefault())
	assert.Equal(t, "optional<string>", email.Type.String())
}

func TestDescriptorsReturnsCopy(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	params := c.Descriptors()
	params[0].Name = "mutated"

	again := c.Descriptors()
	assert.Equal(t, "input", again[0].Name)
}

func TestSections(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	sections := c.Sections()
	titles := []string{}
	for _, s := range sections {
		titles = append(titles, s.Title)
	}
	assert.Equal(t, []string{
		"Input/output options",
		"UMI options",
		"Reference genome options",
		"Trimming options",
		"Contamination filter options",
		"Skipping pipeline steps",
		"Generic options",
	}, titles)
	assert.Equal(t, []string{"input", "protocol", "outdir", "email", "multiqc_title"}, sections[0].Parameters)
}

func TestLoadRejectsDuplicateNames(t *testing.T) {
	_, err := Load([]byte(`
pipeline: p
parameters:
  - name: a
    type: string
  - name: a
    type: integer
`))
	assert.Error(t, err)
}

func TestLoadRejectsIncompatibleDefault(t *testing.T) {
	_, err := Load([]byte(`
pipeline: p
parameters:
  - name: n
    type: integer
    default: seventeen
`))
	assert.Error(t, err)
}

func TestLoadRejectsUnknownType(t *testing.T) {
	_, err := Load([]byte(`
pipeline: p
parameters:
  - name: n
    type: float
`))
	assert.Error(t, err)
}

func TestLoadRequiresPipeline(t *testing.T) {
	_, err := Load([]byte(`parameters: []`))
	assert.Error(t, err)
}

func TestResolve(t *testing.T) {
	d := Descriptor{Name: "fastp_min_length", Type: Type{Kind: Integer, Optional: true}, Default: 17}

	v, present := d.Resolve(map[string]interface{}{})
	assert.True(t, present)
	assert.Equal(t, 17, v)

	v, present = d.Resolve(map[string]interface{}{"fastp_min_length": 20})
	assert.True(t, present)
	assert.Equal(t, 20, v)

	_, present = d.Resolve(map[string]interface{}{"fastp_min_length": nil})
	assert.False(t, present)

	noDefault := Descriptor{Name: "email", Type: Type{Kind: String, Optional: true}}
	_, present = noDefault.Resolve(nil)
	assert.False(t, present)

	fasta := Descriptor{Name: "fasta", Type: Type{Kind: File, Optional: true}}
	v, present = fasta.Resolve(map[string]interface{}{"fasta": (*Ref)(nil)})
	assert.False(t, present)
	assert.Nil(t, v)
	assert.NoError(t, fasta.Type.Check((*Ref)(nil)))
}

func TestKindFormat(t *testing.T) {
	cases := []struct {
		kind Kind
		in   interface{}
		out  string
	}{
		{String, "illumina", "illumina"},
		{String, "", ""},
		{Integer, 17, "17"},
		{Integer, int64(-3), "-3"},
		{Integer, uint8(7), "7"},
		{Integer, json.Number("100"), "100"},
		{Integer, float64(33), "33"},
		{Integer, 1000000, "1000000"},
		{File, "latch:///data/samples.csv", "latch:///data/samples.csv"},
		{File, Ref{Remote: "s3://bucket/a.fa", Local: "/tmp/a.fa"}, "s3://bucket/a.fa"},
		{File, &Ref{Local: "/tmp/a.fa"}, "/tmp/a.fa"},
		{Directory, map[string]interface{}{"location": "latch:///out", "path": "/local"}, "latch:///out"},
		{Directory, map[interface{}]interface{}{"path": "/local"}, "/local"},
	}
	for _, c := range cases {
		got, err := c.kind.Format(c.in)
		require.NoError(t, err, "%v %v", c.kind, c.in)
		assert.Equal(t, c.out, got)
	}
}

func TestKindFormatRejectsMismatches(t *testing.T) {
	cases := []struct {
		kind Kind
		in   interface{}
	}{
		{String, 17},
		{String, true},
		{Integer, "17"},
		{Integer, 17.5},
		{Integer, json.Number("1.5")},
		{Integer, true},
		{File, 3},
		{File, ""},
		{Directory, map[string]interface{}{"size": 3}},
		{Boolean, true},
	}
	for _, c := range cases {
		_, err := c.kind.Format(c.in)
		assert.Error(t, err, "%v %v", c.kind, c.in)
	}
}

func TestTypeCheck(t *testing.T) {
	b := Type{Kind: Boolean, Optional: true}
	assert.NoError(t, b.Check(nil))
	assert.NoError(t, b.Check(false))
	assert.Error(t, b.Check("true"))

	i := Type{Kind: Integer}
	assert.NoError(t, i.Check(17))
	assert.Error(t, i.Check("17"))
}

func TestTypeMarshalJSON(t *testing.T) {
	b, err := json.Marshal(Descriptor{Name: "with_umi", Type: Type{Kind: Boolean, Optional: true}})
	require.NoError(t, err)

	out := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, "optional<boolean>", out["type"])
}

func TestValidate(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	valid, g := c.Validate(map[string]interface{}{
		"input":    "latch:///samples.csv",
		"outdir":   "latch:///results",
		"with_umi": true,
	})
	assert.True(t, valid)
	assert.Empty(t, g)

	valid, g = c.Validate(map[string]interface{}{
		"input":            "latch:///samples.csv",
		"fastp_min_length": "17",
		"bogus":            1,
	})
	assert.False(t, valid)
	assert.Len(t, g, 3)
	assert.Contains(t, g[0], `unknown parameter "bogus"`)
	assert.Contains(t, g[1], `missing required parameter "outdir"`)
	assert.Contains(t, g[2], `parameter "fastp_min_length"`)
}

func TestCheckTypes(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	assert.NoError(t, c.CheckTypes(map[string]interface{}{
		"fastp_min_length": 20,
		"bogus":            "ignored",
	}))
	assert.NoError(t, c.CheckTypes(map[string]interface{}{}))

	err = c.CheckTypes(map[string]interface{}{
		"fastp_min_length": "seventeen",
		"with_umi":         "yes",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `parameter "with_umi"`)
	assert.Contains(t, err.Error(), `parameter "fastp_min_length"`)
}

func TestValidateDoesNotCrossCheckUMIOptions(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	valid, _ := c.Validate(map[string]interface{}{
		"input":                         "latch:///samples.csv",
		"outdir":                        "latch:///results",
		"skip_umi_extract_before_dedup": false,
		"umitools_bc_pattern":           nil,
	})
	assert.True(t, valid)
}
