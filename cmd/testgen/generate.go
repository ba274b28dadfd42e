package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"testgen/internal/exam"

	"github.com/spf13/cobra"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate variants for a test configuration and print them as JSON",
	Long: `Generate variants for a stored configuration (--config-id), or create one
from --category entries first, e.g.

  testgen --memory generate --category "Physics|||=1" --category "Mathematics|1||=1"`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().Int64("config-id", 0, "test configuration id")
	generateCmd.Flags().StringArray("category", nil, `category entry "specialty|course|discipline|topic=count"; repeatable`)
	generateCmd.Flags().String("name", "cli run", "name of the configuration created from --category")
	generateCmd.Flags().Int("variants", 0, "number of variants (defaults to DEFAULT_VARIANTS)")
	generateCmd.Flags().Uint64("seed", 0, "fixed generator seed (overrides GENERATOR_SEED)")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	configID, _ := cmd.Flags().GetInt64("config-id")
	entries, _ := cmd.Flags().GetStringArray("category")
	if (configID > 0) == (len(entries) > 0) {
		return errors.New("pass either --config-id or at least one --category")
	}
	configData, err := parseCategoryFlags(entries)
	if err != nil {
		return err
	}
	n, _ := cmd.Flags().GetInt("variants")
	if n == 0 {
		n = cfg.DefaultVariants
	}
	if seed, _ := cmd.Flags().GetUint64("seed"); seed != 0 {
		cfg.GeneratorSeed = seed
	}

	ctx := cmd.Context()
	svc, conn, err := openServices(cmd, cfg)
	if err != nil {
		return err
	}
	if conn != nil {
		defer conn.Close()
	}

	if len(configData) > 0 {
		name, _ := cmd.Flags().GetString("name")
		created, err := svc.Exams.CreateConfiguration(ctx, exam.CreateConfigInput{Name: name, ConfigData: configData})
		if err != nil {
			return fmt.Errorf("create configuration: %w", err)
		}
		configID = created.ID
	}

	variants, err := svc.Exams.GenerateVariants(ctx, configID, n)
	if err != nil {
		return fmt.Errorf("generate variants: %w", err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(variants)
}

// parseCategoryFlags splits "key=count" entries on the last '='.
func parseCategoryFlags(entries []string) (map[string]int, error) {
	out := make(map[string]int, len(entries))
	for _, e := range entries {
		i := strings.LastIndex(e, "=")
		if i < 0 {
			return nil, fmt.Errorf("--category %q: want key=count", e)
		}
		var count int
		if _, err := fmt.Sscanf(strings.TrimSpace(e[i+1:]), "%d", &count); err != nil {
			return nil, fmt.Errorf("--category %q: count is not an integer", e)
		}
		out[strings.TrimSpace(e[:i])] = count
	}
	return out, nil
}
