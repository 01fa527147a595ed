package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommandRegistration(t *testing.T) {
	names := make(map[string]bool)
	for _, sub := range rootCmd.Commands() {
		names[sub.Name()] = true
	}

	assert.True(t, names["serve"], "serve command registered")
	assert.True(t, names["import"], "import command registered")
	assert.True(t, names["migrate"], "migrate command registered")
}

func TestImportCommandFlags(t *testing.T) {
	flags := importCmd.Flags()

	require.NotNil(t, flags.Lookup("file"))
	require.NotNil(t, flags.Lookup("org"))
	require.NotNil(t, flags.Lookup("tags"))
	assert.Equal(t, "org-default", flags.Lookup("org").DefValue)
}

func TestServeCommandFlags(t *testing.T) {
	require.NotNil(t, serveCmd.Flags().Lookup("port"))
	assert.Equal(t, "0", serveCmd.Flags().Lookup("port").DefValue)
}
