// Package schema declares every table that participates in a Stockbook
// snapshot, its exhaustive column list, and the foreign-key dependency order
// used for insertion and deletion. The registry is the single source of truth
// consumed by both the exporter and the importer so they can never disagree on
// shape or order.
package schema

// CurrentVersion is the schema version written into exported snapshots. It
// must be incremented whenever a table or column is added, and the importer
// rejects any document whose version exceeds it.
const CurrentVersion = 2

// tableDef binds a table name to its exhaustive, ordered column list.
type tableDef struct {
	name    string
	columns []string
}

// Registry is an immutable view over the snapshot table declarations.
// The zero value is not usable; construct one with NewRegistry.
type Registry struct {
	version int
	tables  []tableDef
	byName  map[string][]string
}

// NewRegistry returns the registry for the current schema version.
//
// Tables are listed parents-first: every table appears after all tables it
// references via foreign key, so inserting in this order and deleting in the
// reverse order never violates referential integrity.
func NewRegistry() *Registry {
	defs := []tableDef{
		{"items", []string{"id", "name", "category", "price", "stock", "barcode"}},
		{"purchase_orders", []string{"id", "supplier", "order_date", "status", "total"}},
		{"purchase_order_items", []string{"id", "order_id", "item_id", "quantity", "unit_price"}},
		{"bookkeeping_entries", []string{"id", "entry_date", "description", "amount", "entry_type"}},
		{"bookkeeping_entry_history", []string{"id", "entry_id", "changed_at", "field", "old_value", "new_value"}},
		{"stock_history", []string{"id", "item_id", "recorded_at", "delta", "reason"}},
	}

	byName := make(map[string][]string, len(defs))
	for _, def := range defs {
		byName[def.name] = def.columns
	}

	return &Registry{
		version: CurrentVersion,
		tables:  defs,
		byName:  byName,
	}
}

// Version returns the schema version this registry describes
func (r *Registry) Version() int {
	return r.version
}

// InsertOrder returns all table names in dependency order, parents first
func (r *Registry) InsertOrder() []string {
	names := make([]string, len(r.tables))
	for i, def := range r.tables {
		names[i] = def.name
	}
	return names
}

// DeleteOrder returns all table names in reverse dependency order, children
// first, so rows can be cleared without tripping foreign-key constraints.
func (r *Registry) DeleteOrder() []string {
	names := r.InsertOrder()
	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
	return names
}

// Columns returns the declared, ordered column list for a table. The returned
// slice is a copy; callers may not mutate registry state through it.
func (r *Registry) Columns(table string) []string {
	cols, ok := r.byName[table]
	if !ok {
		return nil
	}
	out := make([]string, len(cols))
	copy(out, cols)
	return out
}

// Has reports whether the registry declares the given table
func (r *Registry) Has(table string) bool {
	_, ok := r.byName[table]
	return ok
}

// TableCount returns the number of declared tables
func (r *Registry) TableCount() int {
	return len(r.tables)
}
