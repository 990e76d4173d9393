package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"job-recommender/internal/common/validation"
	"job-recommender/pkg/registry"

	"github.com/spf13/cobra"
)

var (
	addActivity registry.Activity

	listCmd = &cobra.Command{
		Use:   "list",
		Short: "List registered activities",
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := registry.LoadRegistry(registryPath)
			if err != nil {
				return err
			}
			printActivities(cmd.OutOrStdout(), reg)
			return nil
		},
	}

	addCmd = &cobra.Command{
		Use:   "add",
		Short: "Add a new activity",
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := registry.LoadRegistry(registryPath)
			if errors.Is(err, os.ErrNotExist) {
				reg, err = &registry.ActivityRegistry{Version: "1.0.0"}, nil
			}
			if err != nil {
				return err
			}
			if err := validation.ValidateTaskType(addActivity.TaskType); err != nil {
				return err
			}
			a := addActivity
			if a.ID == "" {
				a.ID = a.TaskType
			}
			a.InputSchema = map[string]interface{}{"type": "object"}
			a.OutputSchema = map[string]interface{}{"type": "object"}
			if err := reg.Add(a); err != nil {
				return err
			}
			if err := registry.Save(reg, registryPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added activity: %s\n", a.ID)
			return nil
		},
	}

	setCmd = &cobra.Command{
		Use:   "set <id> <field> <value>",
		Short: "Update one field of an activity (status, version, displayName, description, timeout, retries)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := registry.LoadRegistry(registryPath)
			if err != nil {
				return err
			}
			if err := reg.Set(args[0], args[1], args[2]); err != nil {
				return err
			}
			if err := registry.Save(reg, registryPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated activity %s, field %s to %s\n", args[0], args[1], args[2])
			return nil
		},
	}

	checkCmd = &cobra.Command{
		Use:   "check",
		Short: "Validate the registry and compile every schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := registry.LoadRegistry(registryPath)
			if err != nil {
				return err
			}
			problems := checkRegistry(reg)
			for _, p := range problems {
				fmt.Fprintln(cmd.ErrOrStderr(), p)
			}
			if len(problems) > 0 {
				return fmt.Errorf("registry has %d problem(s)", len(problems))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registry validation passed. Found %d activities.\n", len(reg.Activities))
			return nil
		},
	}
)

func init() {
	addCmd.Flags().StringVar(&addActivity.ID, "id", "", "Activity ID (defaults to the task type)")
	addCmd.Flags().StringVar(&addActivity.TaskType, "task-type", "", "Zeebe task type, kebab-case (required)")
	addCmd.Flags().StringVar(&addActivity.DisplayName, "display-name", "", "Display name (required)")
	addCmd.Flags().StringVar(&addActivity.Description, "description", "", "Description")
	addCmd.Flags().StringVar(&addActivity.Category, "category", "recommendation", "Category")
	addCmd.Flags().StringVar(&addActivity.Version, "version", "1.0.0", "Version")
	addCmd.Flags().StringVar(&addActivity.ImplementationStatus, "status", "planned", "Implementation status")
	addCmd.Flags().StringVar(&addActivity.Timeout, "timeout", "30s", "Job timeout")

	for _, name := range []string{"task-type", "display-name"} {
		if err := addCmd.MarkFlagRequired(name); err != nil {
			panic(fmt.Sprintf("failed to mark %s flag as required: %v", name, err))
		}
	}

	rootCmd.AddCommand(listCmd, addCmd, setCmd, checkCmd)
}

// checkRegistry reports every problem instead of stopping at the first one.
func checkRegistry(reg *registry.ActivityRegistry) []string {
	if len(reg.Activities) == 0 {
		return []string{"registry contains no activities"}
	}

	var problems []string
	for _, a := range reg.Activities {
		if a.DisplayName == "" {
			problems = append(problems, fmt.Sprintf("%s: missing displayName", a.ID))
		}
		if err := validation.ValidateTaskType(a.TaskType); err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", a.ID, err))
		}
		for kind, schema := range map[string]map[string]interface{}{"inputSchema": a.InputSchema, "outputSchema": a.OutputSchema} {
			if len(schema) == 0 {
				continue
			}
			if _, err := validation.Compile(schema); err != nil {
				problems = append(problems, fmt.Sprintf("%s: %s does not compile: %v", a.ID, kind, err))
			}
		}
	}
	sort.Strings(problems)
	return problems
}

func printActivities(w io.Writer, reg *registry.ActivityRegistry) {
	for _, a := range reg.Activities {
		fmt.Fprintf(w, "%-22s %-12s %-8s %s\n", a.TaskType, a.ImplementationStatus, a.Timeout, strings.TrimSpace(a.DisplayName))
	}
}
