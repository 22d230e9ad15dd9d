// Package pbip scaffolds a Power BI project: the descriptor files of the
// project layout plus the TMDL semantic-model definitions rendered from a
// discovered schema snapshot.
package pbip

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/tmcgann/fabworks/internal/artifact"
)

// Project describes a PBIP project to generate.
type Project struct {
	// Name is the artifact base name, e.g. "Sales" yields Sales.pbip,
	// Sales.Report, and Sales.SemanticModel.
	Name string
	// OutDir is the directory the project tree is created under.
	OutDir string
	// ServerName and DatabaseName parameterize the data source expressions.
	ServerName   string
	DatabaseName string
	// Tables are the base tables to model, usually from a schema snapshot.
	Tables []string

	Log zerolog.Logger
}

func (p *Project) srcDir() string {
	return filepath.Join(p.OutDir, "src")
}

func (p *Project) modelDir() string {
	return filepath.Join(p.srcDir(), p.Name+".SemanticModel")
}

// Scaffold creates the project directory tree and the JSON descriptor files.
// Returns the paths of the files written.
func (p *Project) Scaffold() ([]string, error) {
	if p.Name == "" {
		return nil, fmt.Errorf("pbip: project name is required")
	}
	if p.OutDir == "" {
		return nil, fmt.Errorf("pbip: output directory is required")
	}

	reportDir := filepath.Join(p.srcDir(), p.Name+".Report")
	for _, dir := range []string{
		filepath.Join(reportDir, "definition"),
		filepath.Join(p.modelDir(), "definition", "tables"),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating project directory: %w", err)
		}
	}

	var written []string
	write := func(path string, v any) error {
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding %s: %w", filepath.Base(path), err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
		}
		written = append(written, path)
		return nil
	}

	pbip := map[string]any{
		"$schema": "https://developer.microsoft.com/json-schemas/fabric/pbip/pbipProperties/1.0.0/schema.json",
		"version": "1.0",
		"artifacts": []map[string]any{
			{"report": map[string]string{"path": p.Name + ".Report"}},
		},
		"settings": map[string]any{"enableAutoRecovery": true},
	}
	if err := write(filepath.Join(p.srcDir(), p.Name+".pbip"), pbip); err != nil {
		return nil, err
	}

	pbir := map[string]any{
		"$schema": "https://developer.microsoft.com/json-schemas/fabric/item/report/definitionProperties/1.0.0/schema.json",
		"version": "1.0",
		"datasetReference": map[string]any{
			"byPath": map[string]string{"path": "../" + p.Name + ".SemanticModel"},
		},
	}
	if err := write(filepath.Join(reportDir, "definition.pbir"), pbir); err != nil {
		return nil, err
	}

	pbism := map[string]any{
		"$schema":  "https://developer.microsoft.com/json-schemas/fabric/item/semanticModel/definitionProperties/1.0.0/schema.json",
		"version":  "4.2",
		"settings": map[string]any{"qnaEnabled": true},
	}
	if err := write(filepath.Join(p.modelDir(), "definition.pbism"), pbism); err != nil {
		return nil, err
	}

	p.Log.Info().Str("dir", p.OutDir).Int("files", len(written)).Msg("scaffolded project structure")
	return written, nil
}

// AnalyzeRequirements summarizes what the requirements document implies for
// the project: the requirement rows, the measure keywords mentioned, and the
// data-source hints. The summary is consumed by the generating agent, not by
// code.
func AnalyzeRequirements(doc *artifact.Document) string {
	if doc == nil {
		return "No requirements document is available. Generate requirements first."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Requirements analysis:\n")
	fmt.Fprintf(&b, "  Business requirements: %d\n", len(doc.Requirements))
	for _, r := range doc.Requirements {
		fmt.Fprintf(&b, "  - %s: %s\n", r.ID, r.Description)
	}

	lower := strings.ToLower(doc.Raw)
	var measures []string
	for _, kw := range []string{"total sales", "sales amount", "growth", "rank", "ytd", "mtd"} {
		if strings.Contains(lower, kw) {
			measures = append(measures, kw)
		}
	}
	if len(measures) > 0 {
		fmt.Fprintf(&b, "  Measure keywords: %s\n", strings.Join(measures, ", "))
	}
	if strings.Contains(lower, "sql") {
		fmt.Fprintf(&b, "  Data source: relational (SQL) source mentioned\n")
	}
	return b.String()
}
