package pbip

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

// TMDL uses literal tab indentation; the templates below keep the exact
// layout the service expects.

const databaseTMDL = "database\n\tcompatibilityLevel: 1601\n\n"

const modelTMDL = `model Model
	culture: en-US
	defaultPowerBIDataSourceVersion: powerBI_V3
	discourageImplicitMeasures
	sourceQueryCulture: en-US
	dataAccessOptions
		legacyRedirects
		returnErrorValuesAsNull

	annotation PBI_ProTooling = ["DevMode"]
	annotation __PBI_TimeIntelligenceEnabled = 1
`

var expressionsTemplate = template.Must(template.New("expressions").Parse(
	`expression ServerName = "{{.ServerName}}" meta [IsParameterQuery=true, Type="Text", IsParameterQueryRequired=true]

expression DatabaseName = "{{.DatabaseName}}" meta [IsParameterQuery=true, Type="Text", IsParameterQueryRequired=true]
`))

var tableTemplate = template.Must(template.New("table").Parse(
	`table {{.Name}}
{{if .Measures}}{{range .Measures}}
	measure '{{.Name}}' = {{.Expression}}
		formatString: {{.Format}}
{{end}}{{end}}
	partition {{.Name}} = m
		mode: import
		source =
			let
				Source = Sql.Database(ServerName, DatabaseName),
				{{.Name}} = Source{[Schema="dbo",Item="{{.Name}}"]}[Data]
			in
				{{.Name}}
`))

type tableMeasure struct {
	Name       string
	Expression string
	Format     string
}

type tableData struct {
	Name     string
	Measures []tableMeasure
}

// RenderTMDL writes the semantic-model TMDL files: database, model,
// expressions, relationships, and one table definition per discovered table.
// Scaffold must have run first. Returns the paths written.
func (p *Project) RenderTMDL() ([]string, error) {
	defDir := filepath.Join(p.modelDir(), "definition")
	if _, err := os.Stat(defDir); err != nil {
		return nil, fmt.Errorf("project structure not found, scaffold first: %w", err)
	}

	var written []string
	write := func(name, content string) error {
		path := filepath.Join(defDir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
		written = append(written, path)
		return nil
	}

	if err := write("database.tmdl", databaseTMDL); err != nil {
		return nil, err
	}
	if err := write("model.tmdl", modelTMDL); err != nil {
		return nil, err
	}

	var expr strings.Builder
	if err := expressionsTemplate.Execute(&expr, p); err != nil {
		return nil, fmt.Errorf("rendering expressions: %w", err)
	}
	if err := write("expressions.tmdl", expr.String()); err != nil {
		return nil, err
	}

	// Column-level metadata is not part of the schema snapshot, so
	// relationships cannot be derived yet.
	if err := write("relationships.tmdl", "/// Relationships are added after column-level schema analysis\n"); err != nil {
		return nil, err
	}

	for _, table := range p.Tables {
		data := tableData{Name: table}
		if strings.HasPrefix(table, "Fact") {
			data.Measures = []tableMeasure{{
				Name:       table + " Row Count",
				Expression: fmt.Sprintf("COUNTROWS('%s')", table),
				Format:     "0",
			}}
		}

		var buf strings.Builder
		if err := tableTemplate.Execute(&buf, data); err != nil {
			return nil, fmt.Errorf("rendering table %s: %w", table, err)
		}
		path := filepath.Join(defDir, "tables", table+".tmdl")
		if err := os.WriteFile(path, []byte(buf.String()), 0o644); err != nil {
			return nil, fmt.Errorf("writing table %s: %w", table, err)
		}
		written = append(written, path)
	}

	p.Log.Info().Int("files", len(written)).Int("tables", len(p.Tables)).Msg("rendered semantic model definitions")
	return written, nil
}
