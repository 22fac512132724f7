package main

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRootCmdFlags(t *testing.T) {
	cmd := NewRootCmd()

	assert.Equal(t, "crawler", cmd.Use)
	assert.NotEmpty(t, cmd.Short)

	defaults := map[string]string{
		"position":  "web developer",
		"location":  "San Francisco",
		"max-pages": "2",
		"headless":  "true",
	}
	for name, want := range defaults {
		flag := cmd.Flags().Lookup(name)
		require.NotNil(t, flag, name)
		assert.Equal(t, want, flag.DefValue, name)
	}

	count := 0
	cmd.Flags().VisitAll(func(*pflag.Flag) { count++ })
	assert.Equal(t, 4, count)
}

func TestRootCmdRejectsZeroPages(t *testing.T) {
	cmd := NewRootCmd()
	cmd.SetArgs([]string{"--max-pages", "0"})

	err := cmd.Execute()
	assert.ErrorContains(t, err, "max-pages")
}

func TestRootCmdRejectsArgs(t *testing.T) {
	cmd := NewRootCmd()
	cmd.SetArgs([]string{"extra"})

	assert.Error(t, cmd.Execute())
}
