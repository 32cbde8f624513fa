package index

import (
	"strings"
)

// CreateOrUpdateIndexSQL returns the idempotent DDL for h's replica table.
// The output is byte-for-byte stable for a given graph.
func (g *Graph) CreateOrUpdateIndexSQL(h Handle) (string, error) {
	n, err := g.node(h)
	if err != nil {
		return "", err
	}
	benefactors, err := g.Benefactors(h)
	if err != nil {
		return "", err
	}
	table := n.key.TableName()

	var b strings.Builder
	b.WriteString("CREATE TABLE IF NOT EXISTS ")
	b.WriteString(table)
	b.WriteString(" (\n")
	b.WriteString("  " + ColumnRowID + " INTEGER NOT NULL,\n")
	b.WriteString("  " + ColumnRowVersion + " INTEGER NOT NULL DEFAULT 0,\n")
	b.WriteString("  " + ColumnRowEtag + " TEXT,\n")
	b.WriteString("  " + ColumnRowSearchContent + " TEXT,\n")
	for _, bf := range benefactors {
		b.WriteString("  " + bf.ColumnName + " INTEGER NOT NULL DEFAULT -1,\n")
	}
	b.WriteString("  PRIMARY KEY (" + ColumnRowID + ")\n);")
	for _, bf := range benefactors {
		b.WriteString("\nCREATE INDEX IF NOT EXISTS ")
		b.WriteString(table + "_" + bf.ColumnName + "_IDX")
		b.WriteString(" ON " + table + " (" + bf.ColumnName + ");")
	}
	return b.String(), nil
}
