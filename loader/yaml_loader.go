package loader

import (
	"fmt"

	"github.com/ridoystarlord/modelforge/schema"
	"github.com/ridoystarlord/modelforge/store"
	"gopkg.in/yaml.v3"
)

// A batch file holds either one batch at the top level or a list under
// "batches".
type yamlFile struct {
	yamlBatch `yaml:",inline"`
	Batches   []yamlBatch `yaml:"batches"`
}

type yamlBatch struct {
	Record    string         `yaml:"record"`
	Fields    []yamlField    `yaml:"fields"`
	Relations []yamlRelation `yaml:"relations"`
	Indexes   []yamlIndex    `yaml:"indexes"`
}

type yamlField struct {
	Name     string   `yaml:"name"`
	Type     string   `yaml:"type"`
	Values   []string `yaml:"values"`
	Nullable bool     `yaml:"nullable"`
	Unique   bool     `yaml:"unique"`
	Fillable bool     `yaml:"fillable"`
	Hidden   bool     `yaml:"hidden"`
	Appended bool     `yaml:"appended"`
	Cast     string   `yaml:"cast"`
}

type yamlRelation struct {
	Method   string `yaml:"method"`
	Target   string `yaml:"target"`
	Kind     string `yaml:"kind"`
	Junction bool   `yaml:"junction"`
}

// yamlIndex accepts "status", [a, b] or {columns: [a, b]}.
type yamlIndex struct {
	Columns []string
}

func (i *yamlIndex) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		i.Columns = []string{value.Value}
		return nil
	case yaml.SequenceNode:
		return value.Decode(&i.Columns)
	case yaml.MappingNode:
		var m struct {
			Columns []string `yaml:"columns"`
		}
		if err := value.Decode(&m); err != nil {
			return err
		}
		i.Columns = m.Columns
		return nil
	}
	return fmt.Errorf("line %d: index must be a column, a list of columns or a mapping", value.Line)
}

// LoadBatchesFromYAML reads and converts every batch in a file.
func LoadBatchesFromYAML(st *store.Store, filename string) ([]schema.Batch, error) {
	data, err := st.Read(filename)
	if err != nil {
		return nil, fmt.Errorf("reading batch file: %w", err)
	}
	return ParseBatches([]byte(data))
}

// ParseBatches converts YAML batch definitions into schema batches.
func ParseBatches(data []byte) ([]schema.Batch, error) {
	var yf yamlFile
	if err := yaml.Unmarshal(data, &yf); err != nil {
		return nil, fmt.Errorf("unmarshalling YAML: %w", err)
	}

	raw := yf.Batches
	if yf.Record != "" {
		raw = append([]yamlBatch{yf.yamlBatch}, raw...)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("no batches found: set 'record' or list 'batches'")
	}

	var batches []schema.Batch
	for _, b := range raw {
		batch, err := convert(b)
		if err != nil {
			return nil, fmt.Errorf("batch %s: %w", b.Record, err)
		}
		batches = append(batches, batch)
	}
	return batches, nil
}

func convert(b yamlBatch) (schema.Batch, error) {
	batch := schema.Batch{Record: b.Record}

	for _, f := range b.Fields {
		kind, err := schema.ParseFieldKind(f.Type)
		if err != nil {
			return batch, fmt.Errorf("field %s: %w", f.Name, err)
		}
		field := schema.FieldDefinition{
			Name:       f.Name,
			Kind:       kind,
			EnumValues: f.Values,
			Nullable:   f.Nullable,
			Unique:     f.Unique,
			Fillable:   f.Fillable,
			Hidden:     f.Hidden,
			Appended:   f.Appended,
		}
		if f.Cast != "" {
			c, err := schema.ParseCoercion(f.Cast)
			if err != nil {
				return batch, fmt.Errorf("field %s: %w", f.Name, err)
			}
			field.Cast = &c
		}
		batch.Fields = append(batch.Fields, field)
	}

	for _, r := range b.Relations {
		kind, err := schema.ParseRelationKind(r.Kind)
		if err != nil {
			return batch, fmt.Errorf("relation %s: %w", r.Method, err)
		}
		batch.Relations = append(batch.Relations, schema.RelationDefinition{
			Method:   r.Method,
			Target:   r.Target,
			Kind:     kind,
			Junction: r.Junction,
		})
	}

	for _, i := range b.Indexes {
		batch.Indexes = append(batch.Indexes, schema.IndexDefinition{Columns: i.Columns})
	}
	return batch, nil
}
