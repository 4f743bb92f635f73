package rule

// key addresses one bucket of the table.
type key struct {
	metric      string
	stakeholder string
}

// Table indexes rules by output metric and stakeholder.
// Within a bucket rules keep the order of the source rows: the first
// matching rule wins. A Table is read-only once built.
type Table struct {
	buckets      map[key][]Rule
	metrics      []string
	stakeholders map[string][]string
	size         int
}

// Build indexes rows. Rows missing a metric, an input spec or a stakeholder
// are skipped; building never fails.
func Build(rows []Row) *Table {
	t := &Table{
		buckets:      make(map[key][]Rule),
		stakeholders: make(map[string][]string),
	}

	for _, row := range rows {
		r, ok := newRule(row)
		if !ok {
			continue
		}

		k := key{metric: r.Metric, stakeholder: r.Stakeholder}
		if _, seen := t.stakeholders[r.Metric]; !seen {
			t.metrics = append(t.metrics, r.Metric)
		}
		if _, seen := t.buckets[k]; !seen {
			t.stakeholders[r.Metric] = append(t.stakeholders[r.Metric], r.Stakeholder)
		}
		t.buckets[k] = append(t.buckets[k], r)
		t.size++
	}

	return t
}

// RulesFor returns the ordered rules of a bucket, or nil when none exist.
// The returned slice must not be modified.
func (t *Table) RulesFor(metric, stakeholder string) []Rule {
	if t == nil {
		return nil
	}
	return t.buckets[key{metric: metric, stakeholder: stakeholder}]
}

// Metrics lists output metrics in order of first appearance.
func (t *Table) Metrics() []string {
	if t == nil {
		return nil
	}
	return append([]string(nil), t.metrics...)
}

// Stakeholders lists the stakeholders having rules for metric, in order of
// first appearance.
func (t *Table) Stakeholders(metric string) []string {
	if t == nil {
		return nil
	}
	return append([]string(nil), t.stakeholders[metric]...)
}

// Len is the number of indexed rules.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return t.size
}
