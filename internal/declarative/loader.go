package declarative

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"graphable/internal/domain"
	"graphable/internal/sqlrewrite"
	"graphable/internal/validation"
)

// LoadFile reads and validates the document at path.
func LoadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path) //nolint:gosec // operator-supplied path
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Parse decodes a document, rejecting unknown fields, and validates it.
func Parse(data []byte) (*Document, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, domain.ErrValidation("document is empty")
		}
		return nil, domain.ErrValidation("parse: %v", err)
	}
	normalize(&doc)
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// normalize infers missing query kinds the same way JSON decoding does and
// stamps the workspace on every resource.
func normalize(doc *Document) {
	for i := range doc.Graphs {
		g := &doc.Graphs[i]
		g.WorkspaceID = doc.Workspace
		for j := range g.Queries {
			q := &g.Queries[j]
			if q.Kind != "" {
				continue
			}
			switch {
			case q.Operation != "":
				q.Kind = domain.QueryKindExpression
			case q.Dialect != "" || q.Text != "":
				q.Kind = domain.QueryKindSQL
			}
		}
	}
	for i := range doc.Dashboards {
		doc.Dashboards[i].WorkspaceID = doc.Workspace
	}
}

// Validate checks every resource and collects all problems.
func (d *Document) Validate() error {
	var errs []string
	add := func(format string, args ...any) { errs = append(errs, fmt.Sprintf(format, args...)) }

	if d.Workspace == "" {
		add("workspace is required")
	}

	seen := map[ResourceKind]map[string]bool{KindDataSource: {}, KindGraph: {}, KindDashboard: {}}
	checkID := func(kind ResourceKind, i int, id string) {
		switch {
		case id == "":
			add("%s %d: id is required", kind, i)
		case seen[kind][id]:
			add("%s %q: duplicate id", kind, id)
		}
		seen[kind][id] = true
	}

	for i, ds := range d.DataSources {
		checkID(KindDataSource, i, ds.ID)
		if ds.Name == "" {
			add("data_source %q: name is required", ds.ID)
		}
		if ds.Secret != nil {
			if err := validation.Struct(ds.Secret); err != nil {
				add("data_source %q: secret: %v", ds.ID, err)
			}
		}
	}
	for i := range d.Graphs {
		g := &d.Graphs[i]
		checkID(KindGraph, i, g.ID)
		if err := g.Validate(); err != nil {
			add("graph %q: %v", g.ID, err)
			continue
		}
		for _, sql := range graphSQL(g) {
			if err := sqlrewrite.ValidateQuery(sql); err != nil {
				add("graph %q: %v", g.ID, err)
			}
		}
	}
	for i := range d.Dashboards {
		db := &d.Dashboards[i]
		checkID(KindDashboard, i, db.ID)
		if err := db.Validate(); err != nil {
			add("dashboard %q: %v", db.ID, err)
		}
	}

	if len(errs) > 0 {
		return domain.ErrValidationList(errs)
	}
	return nil
}

func graphSQL(g *domain.Graph) []string {
	if g.IsLegacy() {
		return []string{g.Query}
	}
	var out []string
	for _, q := range g.Queries {
		if q.Kind == domain.QueryKindSQL {
			out = append(out, q.Text)
		}
	}
	return out
}
