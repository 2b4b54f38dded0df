package loader

import (
	"fmt"
	"sort"

	"github.com/gantry3d/gantry/cache"
	"github.com/gantry3d/gantry/document"
	"github.com/gantry3d/gantry/model"
)

// metadataColumn tracks one property column while its byte range loads.
type metadataColumn struct {
	table    int
	property string
	typeName string
	dep      cache.Handle
	done     bool
}

// metadataLoader materializes the document-level feature metadata extension: one property
// table per declared feature table, each column backed by the raw bytes of its buffer view.
// Tables are ordered by name so the indices primitives carry are stable across loads.
type metadataLoader struct {
	p   *pipeline
	ext *document.FeatureMetadata

	state State
	err   error

	tables  []model.PropertyTable
	columns []*metadataColumn
	result  *model.FeatureMetadata
}

var _ Loader = &metadataLoader{}

func newMetadataLoader(p *pipeline, ext *document.FeatureMetadata) *metadataLoader {
	return &metadataLoader{p: p, ext: ext, state: StateUnloaded}
}

func (l *metadataLoader) Start() {
	if l.state != StateUnloaded {
		return
	}
	l.state = StateLoading

	names := make([]string, 0, len(l.ext.FeatureTables))
	for name := range l.ext.FeatureTables {
		names = append(names, name)
	}
	sort.Strings(names)

	l.tables = make([]model.PropertyTable, 0, len(names))
	for ti, name := range names {
		table := l.ext.FeatureTables[name]
		l.tables = append(l.tables, model.PropertyTable{
			Name:       name,
			Class:      table.Class,
			Count:      table.Count,
			Properties: make(map[string]model.PropertyColumn, len(table.Properties)),
		})

		props := make([]string, 0, len(table.Properties))
		for prop := range table.Properties {
			props = append(props, prop)
		}
		sort.Strings(props)

		for _, prop := range props {
			l.columns = append(l.columns, &metadataColumn{
				table:    ti,
				property: prop,
				typeName: l.columnType(table.Class, prop),
				dep:      l.p.acquireBufferView(table.Properties[prop].BufferView),
			})
		}
	}
}

// columnType resolves a property's element type from the schema. Array properties report
// their component type, since that is what interprets the packed bytes. Properties without a
// schema entry load as opaque bytes with an empty type.
func (l *metadataLoader) columnType(class, property string) string {
	if l.ext.Schema == nil {
		return ""
	}
	cls, ok := l.ext.Schema.Classes[class]
	if !ok {
		return ""
	}
	prop, ok := cls.Properties[property]
	if !ok {
		return ""
	}
	if prop.ComponentType != "" {
		return prop.ComponentType
	}
	return prop.Type
}

func (l *metadataLoader) Process(TickContext) {
	if l.state != StateLoading {
		return
	}
	remaining := 0
	for _, col := range l.columns {
		if col.done {
			continue
		}
		dep := col.dep.Resource().(Loader)
		switch dep.State() {
		case StateFailed:
			l.fail(fmt.Errorf("feature table %q property %q: %w", l.tables[col.table].Name, col.property, dep.Err()))
			return
		case StateReady:
			l.tables[col.table].Properties[col.property] = model.PropertyColumn{
				Type: col.typeName,
				Data: dep.(*bufferViewLoader).bytes,
			}
			col.done = true
			col.dep.Release()
			col.dep = nil
		default:
			remaining++
		}
	}
	if remaining == 0 {
		l.result = &model.FeatureMetadata{PropertyTables: l.tables}
		l.state = StateReady
	}
}

func (l *metadataLoader) State() State {
	return l.state
}

func (l *metadataLoader) Err() error {
	return l.err
}

func (l *metadataLoader) Destroy() {
	l.releaseColumns()
	l.result = nil
	l.tables = nil
}

func (l *metadataLoader) dependencies() []Loader {
	deps := make([]Loader, 0, len(l.columns))
	for _, col := range l.columns {
		if col.dep != nil {
			deps = append(deps, col.dep.Resource().(Loader))
		}
	}
	return deps
}

func (l *metadataLoader) gpuBytes() (uint64, uint64) {
	return 0, 0
}

func (l *metadataLoader) releaseColumns() {
	for _, col := range l.columns {
		if col.dep != nil {
			col.dep.Release()
			col.dep = nil
		}
	}
}

func (l *metadataLoader) fail(err error) {
	l.err = err
	l.state = StateFailed
	l.releaseColumns()
}
