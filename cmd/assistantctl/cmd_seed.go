package main

import (
	"encoding/json"
	"fmt"
	"os"

	"ai-finance-assistant-be/internal/dto"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// exampleFile is the on-disk shape of a seed file. es_query is written as
// YAML and converted to JSON before storage.
type exampleFile struct {
	Examples []exampleEntry `yaml:"examples"`
}

type exampleEntry struct {
	dto.CreateQueryExampleRequest `yaml:",inline"`
	Query                         map[string]interface{} `yaml:"es_query"`
}

func newSeedExamplesCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed-examples",
		Short: "Import and embed query examples from a YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			reqs, err := loadExamples(file)
			if err != nil {
				return err
			}

			color.Cyan("Importing %d examples from %s", len(reqs), file)
			n, err := container.ExampleService.ImportExamples(cmd.Context(), reqs)
			if err != nil {
				color.Red("Imported %d of %d before failure", n, len(reqs))
				return err
			}
			color.Green("Imported %d examples", n)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "examples.yaml", "Path to the YAML seed file")
	return cmd
}

func loadExamples(path string) ([]*dto.CreateQueryExampleRequest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return parseExamples(raw)
}

func parseExamples(raw []byte) ([]*dto.CreateQueryExampleRequest, error) {
	var f exampleFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}

	reqs := make([]*dto.CreateQueryExampleRequest, 0, len(f.Examples))
	for i, e := range f.Examples {
		if e.Query == nil {
			return nil, fmt.Errorf("example %d: es_query is required", i)
		}
		b, err := json.Marshal(e.Query)
		if err != nil {
			return nil, fmt.Errorf("example %d: %w", i, err)
		}
		req := e.CreateQueryExampleRequest
		req.ESQuery = b
		reqs = append(reqs, &req)
	}
	return reqs, nil
}
