package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/auditflow/internal/domain/sampling"
)

func TestSampleHelpNamesEveryModule(t *testing.T) {
	usage := sampleCmd.Flags().Lookup("module").Usage
	for _, k := range sampling.ModuleKinds() {
		assert.Contains(t, sampleCmd.Short, string(k))
		assert.Contains(t, usage, string(k))
	}
}

func TestRootRegistersCommands(t *testing.T) {
	names := make([]string, 0, len(rootCmd.Commands()))
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"serve", "variance", "sample", "migrate"} {
		assert.Contains(t, names, want)
	}
}

func TestVarianceRequiresFile(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs([]string{"variance", "--config", t.TempDir() + "/missing.yaml"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--file")
}
