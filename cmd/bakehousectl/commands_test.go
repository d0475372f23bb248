package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bakehouse/internal/infrastructure/storage/postgres/migrations"
)

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"migrate", "migrations", "seed-admin", "create-user"})
}

func TestMigrationsCmd_ListsEmbeddedVersions(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"migrations"})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "0001_schema")
}

func TestCreateUserCmd_RejectsUnknownRole(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"create-user", "--username", "baker", "--password", "secret1", "--role", "baker"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown role")
}

func TestCreateUserCmd_RequiresFlags(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"create-user", "--username", "baker"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

func TestPrintMigrations(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, printMigrations(&out, []migrations.Migration{{Version: "0001_a"}, {Version: "0002_b"}}))
	assert.Equal(t, "0001_a\n0002_b\n", out.String())
}
