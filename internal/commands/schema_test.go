package commands

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func TestNormalizeFlagType(t *testing.T) {
	require.Equal(t, "integer", normalizeFlagType("int64"))
	require.Equal(t, "boolean", normalizeFlagType("bool"))
	require.Equal(t, "array", normalizeFlagType("stringSlice"))
	require.Equal(t, "string", normalizeFlagType("duration"))
	require.Equal(t, "string", normalizeFlagType("string"))
}

func TestTypedFlagDefault(t *testing.T) {
	require.Equal(t, true, typedFlagDefault("bool", "true"))
	require.Equal(t, 42, typedFlagDefault("int", "42"))
	require.Equal(t, "oops", typedFlagDefault("int", "oops"))
	require.Equal(t, "medium", typedFlagDefault("string", "medium"))
}

func TestIsRequiredFlag(t *testing.T) {
	reqByAnnotation := &pflag.Flag{Annotations: map[string][]string{cobra.BashCompOneRequiredFlag: {"true"}}}
	require.True(t, isRequiredFlag(reqByAnnotation))

	reqByUsage := &pflag.Flag{Usage: "Sprint name (required)"}
	require.True(t, isRequiredFlag(reqByUsage))

	require.False(t, isRequiredFlag(&pflag.Flag{Usage: "optional flag"}))
}

func TestParseEnumValues(t *testing.T) {
	require.Equal(t, []string{"todo", "in_progress", "done"}, parseEnumValues("Filter by status: todo|in_progress|done"))
	require.Equal(t, []string{"low", "high"}, parseEnumValues("Priority (low, high)"))
	require.Nil(t, parseEnumValues("Example only (e.g. foo, bar)"))
	require.Nil(t, parseEnumValues(""))
}

func TestNormalizeEnumParts(t *testing.T) {
	require.Equal(t, []string{"a", "b"}, normalizeEnumParts([]string{" a ", "[b]", "skip me", "1.2"}))
	require.Nil(t, normalizeEnumParts([]string{"onlyone"}))
}

func TestBuildCommandSchema_CollectsFlagsAndRequired(t *testing.T) {
	root := &cobra.Command{Use: "scrum"}
	root.PersistentFlags().String("db-path", "", "Database file (required)")

	child := &cobra.Command{Use: "list", Short: "List tasks", Annotations: map[string]string{"mutates": "true"}}
	child.Flags().String("status", "todo", "Filter by status: todo|in_progress|done")
	child.Flags().String("hidden-flag", "x", "hidden")
	require.NoError(t, child.Flags().MarkHidden("hidden-flag"))
	root.AddCommand(child)

	schema := buildCommandSchema(child)
	require.Equal(t, "scrum list", schema.Command)
	require.Equal(t, "List tasks", schema.Description)
	require.True(t, schema.Mutates)

	props := schema.ArgsSchema["properties"].(map[string]any)
	require.Contains(t, props, "db-path")
	require.Contains(t, props, "status")
	require.NotContains(t, props, "hidden-flag")

	status := props["status"].(map[string]any)
	require.Equal(t, "string", status["type"])
	require.Equal(t, "todo", status["default"])
	require.Equal(t, []string{"todo", "in_progress", "done"}, status["enum"])

	required := schema.ArgsSchema["required"].([]string)
	require.Contains(t, required, "db-path")
}

func TestCollectCommandSchemas_FiltersRootSchemaAndHidden(t *testing.T) {
	root := &cobra.Command{Use: "scrum"}
	schemaCmd := &cobra.Command{Use: "schema"}
	visible := &cobra.Command{Use: "backlog", Short: "Backlog"}
	hidden := &cobra.Command{Use: "secret", Hidden: true}

	root.AddCommand(schemaCmd, visible, hidden)

	var out []commandArgSchema
	collectCommandSchemas(root, &out)

	require.Len(t, out, 1)
	require.Equal(t, "scrum backlog", out[0].Command)
	require.False(t, out[0].Mutates)
}
