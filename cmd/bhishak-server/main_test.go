package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HrishikeshVipin/Bhishak-Med-sub001/internal/platform/auth"
	"github.com/HrishikeshVipin/Bhishak-Med-sub001/internal/platform/db"
)

func TestRootCmd_Subcommands(t *testing.T) {
	root := rootCmd()

	for _, path := range [][]string{
		{"serve"},
		{"migrate", "up"},
		{"migrate", "status"},
		{"migrate", "down"},
		{"admin", "create"},
	} {
		cmd, _, err := root.Find(path)
		require.NoError(t, err, strings.Join(path, " "))
		assert.Equal(t, path[len(path)-1], cmd.Name())
	}
}

func TestMigrateDown_OnlyWarns(t *testing.T) {
	root := rootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"migrate", "down"})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "WARNING")
}

func TestAdminCreate_Flags(t *testing.T) {
	cmd, _, err := rootCmd().Find([]string{"admin", "create"})
	require.NoError(t, err)

	role := cmd.Flags().Lookup("role")
	require.NotNil(t, role)
	assert.Equal(t, auth.RoleAdmin, role.DefValue)
	assert.NotNil(t, cmd.Flags().Lookup("email"))
	assert.NotNil(t, cmd.Flags().Lookup("name"))
}

func TestReadPassword_FromPipe(t *testing.T) {
	var prompt bytes.Buffer
	pw, err := readPassword(strings.NewReader("s3cret-value\r\nignored\n"), &prompt)
	require.NoError(t, err)
	assert.Equal(t, "s3cret-value", pw)
	assert.Empty(t, prompt.String())

	pw, err = readPassword(strings.NewReader("no-newline"), &prompt)
	require.NoError(t, err)
	assert.Equal(t, "no-newline", pw)
}

func TestPrintStatus(t *testing.T) {
	var out bytes.Buffer
	printStatus(&out, &db.MigrationStatus{Current: 3, Latest: 3})
	assert.Contains(t, out.String(), "up to date")

	out.Reset()
	printStatus(&out, &db.MigrationStatus{Current: 1, Latest: 3, Pending: 2})
	assert.NotContains(t, out.String(), "up to date")
	assert.Contains(t, out.String(), "2")
}
