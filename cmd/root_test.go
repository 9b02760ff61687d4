package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	cmds := rootCmd.Commands()

	// Collect subcommand names.
	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}

	// Verify expected subcommands are registered.
	expected := []string{"build", "serve", "export", "sources", "kpis"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "cervejazero", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestBuildCommand_Flags(t *testing.T) {
	for _, name := range []string{"min-year", "max-year", "timeout", "offline", "format", "output"} {
		require.NotNil(t, buildCmd.Flags().Lookup(name), "build command should have --%s", name)
	}
	assert.Equal(t, "table", buildCmd.Flags().Lookup("format").DefValue)
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestExportCommand_Flags(t *testing.T) {
	flag := exportCmd.Flags().Lookup("format")
	require.NotNil(t, flag)
	assert.Equal(t, "xlsx", flag.DefValue)
	require.NotNil(t, exportCmd.Flags().Lookup("output"))
}

func TestSourcesCommand_HasPrune(t *testing.T) {
	var found bool
	for _, c := range sourcesCmd.Commands() {
		if c.Name() == "prune" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestKPIsCommand_Flags(t *testing.T) {
	flag := kpisCmd.Flags().Lookup("year")
	require.NotNil(t, flag)
	assert.Equal(t, "0", flag.DefValue)
}
