// cmd/tools/registry-updater/main.go
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var registryPath string

var rootCmd = &cobra.Command{
	Use:           "registry-updater",
	Short:         "Inspect and edit the activity registry",
	Long:          "Maintains configs/activity-registry.json, the catalogue of worker task types and their input/output schemas.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&registryPath, "path", "p", defaultRegistryPath(), "Path to registry file")
}

func defaultRegistryPath() string {
	if p := os.Getenv("REGISTRY_PATH"); p != "" {
		return p
	}
	return "configs/activity-registry.json"
}

func main() {
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
