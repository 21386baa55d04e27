package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/skillgraph/internal/cli/config"
	"github.com/leapstack-labs/skillgraph/internal/validator"
)

const testInputCSV = `Job ID,Job Title,Company Name,District,NCO Code,Group,Assigned_Occupation_Group,importance_standardised
j1,Data Engineer,Acme,Pune,2512,Group A,Software Developers,"[{""skill"": ""Python"", ""bucket"": ""Advanced"", ""mapping_similarity"": 0.9}, {""skill"": ""SQL"", ""bucket"": ""Proficient"", ""mapping_similarity"": 0.8}]"
j2,Analyst,Beta,Mumbai,2512,Group A,Software Developers,"[{""skill"": ""python"", ""bucket"": ""Proficient"", ""mapping_similarity"": 0.7}]"
j3,Clerk,Gamma,Delhi,,,,
`

func executeCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	config.ResetConfig()
	t.Cleanup(config.ResetConfig)

	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func writeInput(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "jobs.csv")
	require.NoError(t, os.WriteFile(path, []byte(testInputCSV), 0o644))
	return path
}

func TestBuildEndToEnd(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir)
	outDir := filepath.Join(dir, "output")

	stdout, _, err := executeCommand(t,
		"build", "--input", input, "--output-dir", outDir, "--output", "json")
	require.NoError(t, err)

	for _, name := range []string{
		"nodes.csv", "edges.csv", "graph.graphml",
		"skill_dictionary.csv", "bad_rows.csv", "report.json",
	} {
		assert.FileExists(t, filepath.Join(outDir, name))
	}

	var report validator.Report
	require.NoError(t, json.Unmarshal([]byte(stdout), &report))
	assert.Equal(t, 3, report.Input.Total)
	assert.Equal(t, 3, report.Input.Parsed)
	assert.Equal(t, 2, report.Normalization.CanonicalSkills)
	assert.Equal(t, 3, report.Graph.NodesByKind["job"])
	assert.Equal(t, 2, report.Graph.NodesByKind["skill"])
	assert.Equal(t, 1, report.Graph.NodesByKind["category"])
	assert.Equal(t, 3, report.Graph.EdgesByRel["REQUIRES_SKILL"])
	assert.Equal(t, 2, report.Graph.EdgesByRel["IN_CATEGORY"])
}

func TestBuildFormatSelection(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir)
	outDir := filepath.Join(dir, "output")

	_, _, err := executeCommand(t,
		"build", "--input", input, "--output-dir", outDir,
		"--formats", "graphml", "--output", "json")
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(outDir, "graph.graphml"))
	assert.NoFileExists(t, filepath.Join(outDir, "nodes.csv"))
	assert.NoFileExists(t, filepath.Join(outDir, "edges.csv"))
}

func TestBuildWithStatisticalSubset(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir)
	outDir := filepath.Join(dir, "output")

	stdout, _, err := executeCommand(t,
		"build", "--input", input, "--output-dir", outDir, "--output", "json",
		"--subset", "--subset-mode", "stats", "--min-per-category", "1")
	require.NoError(t, err)

	var report validator.Report
	require.NoError(t, json.Unmarshal([]byte(stdout), &report))
	require.NotNil(t, report.Sampling)
	assert.Equal(t, "stats", report.Sampling.Mode)
	assert.Equal(t, 3, report.Sampling.Population.TotalJobs)
}

// Two runs over the same input with the same seed must produce
// byte-identical graph artifacts.
func TestBuildFixedSeedIdempotence(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir)

	runOnce := func(outDir string) {
		_, _, err := executeCommand(t,
			"build", "--input", input, "--output-dir", outDir, "--output", "json",
			"--subset", "--subset-mode", "stats", "--min-per-category", "1")
		require.NoError(t, err)
	}
	first := filepath.Join(dir, "out1")
	second := filepath.Join(dir, "out2")
	runOnce(first)
	runOnce(second)

	for _, name := range []string{
		"nodes.csv", "edges.csv", "graph.graphml", "skill_dictionary.csv",
	} {
		a, err := os.ReadFile(filepath.Join(first, name))
		require.NoError(t, err)
		b, err := os.ReadFile(filepath.Join(second, name))
		require.NoError(t, err)
		assert.Equal(t, string(a), string(b), "artifact %s differs between runs", name)
	}
}

func TestBuildTSVInput(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "jobs.tsv")
	content := "Job ID\tJob Title\tCompany Name\tDistrict\tNCO Code\tGroup\tAssigned_Occupation_Group\timportance_standardised\n" +
		"j1\tData Engineer\tAcme\tPune\t2512\tGroup A\tSoftware Developers\t" +
		`"[{""skill"": ""Python"", ""bucket"": ""Advanced"", ""mapping_similarity"": 0.9}]"` + "\n" +
		"j2\tAnalyst\tBeta\tMumbai\t2512\tGroup A\tSoftware Developers\t\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	outDir := filepath.Join(dir, "output")

	stdout, _, err := executeCommand(t,
		"build", "--input", path, "--output-dir", outDir, "--output", "json")
	require.NoError(t, err)

	var report validator.Report
	require.NoError(t, json.Unmarshal([]byte(stdout), &report))
	assert.Equal(t, 2, report.Input.Parsed)
	assert.Equal(t, 0, report.Input.SkippedNoID)
	assert.Equal(t, 2, report.Graph.NodesByKind["job"])
	assert.Equal(t, 1, report.Graph.EdgesByRel["REQUIRES_SKILL"])
}

func TestBuildMissingInput(t *testing.T) {
	_, _, err := executeCommand(t, "build", "--output", "json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "input file is required")
}

func TestBuildRecordsRunHistory(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir)
	outDir := filepath.Join(dir, "output")
	statePath := filepath.Join(dir, "runs.db")

	_, _, err := executeCommand(t,
		"build", "--input", input, "--output-dir", outDir,
		"--state", statePath, "--output", "json")
	require.NoError(t, err)

	stdout, _, err := executeCommand(t,
		"runs", "--state", statePath, "--output", "json")
	require.NoError(t, err)

	var runs []struct {
		Status    string `json:"status"`
		NodeCount int    `json:"node_count"`
		EdgeCount int    `json:"edge_count"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, "completed", runs[0].Status)
	assert.Equal(t, 6, runs[0].NodeCount)
	assert.Equal(t, 5, runs[0].EdgeCount)
}

func TestRunsWithoutStatePath(t *testing.T) {
	_, _, err := executeCommand(t, "runs")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no state database configured")
}

func TestVersionCommand(t *testing.T) {
	stdout, _, err := executeCommand(t, "version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "skillgraph v")
	assert.Contains(t, stdout, "Job Postings Knowledge Graph Builder")
}
