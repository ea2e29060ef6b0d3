package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// csvColumns is the header written on export. On import only code and name
// are required and columns may come in any order.
var csvColumns = []string{
	"code", "id", "name", "level", "cost", "start", "end",
	"duration_days", "status", "responsible", "description", "dependencies", "trl",
}

// decodeCSV rebuilds the tree from dotted WBS codes: "1" is the root and
// "1.2.3" is the third child of "1.2". Rows may appear in any order; siblings
// keep the order of their rows.
func decodeCSV(r io.Reader) (*Document, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing csv: %w", err)
	}
	if len(records) == 0 {
		return nil, errors.New("parsing csv: empty file")
	}

	cols := make(map[string]int)
	for i, h := range records[0] {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{"code", "name"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("csv header: missing %q column", required)
		}
	}
	get := func(rec []string, col string) string {
		i, ok := cols[col]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	rows := make(map[string]NodeDoc)
	kids := make(map[string][]string)
	rootCode := ""
	for i, rec := range records[1:] {
		line := i + 2
		if isBlankRecord(rec) {
			continue
		}
		code := get(rec, "code")
		if err := checkCode(code); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if _, dup := rows[code]; dup {
			return nil, fmt.Errorf("line %d: duplicate code %q", line, code)
		}
		n, err := parseCSVRow(rec, get)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		n.Code = code
		rows[code] = n

		cut := strings.LastIndex(code, ".")
		if cut < 0 {
			if rootCode != "" {
				return nil, fmt.Errorf("line %d: second root %q (already have %q)", line, code, rootCode)
			}
			rootCode = code
			continue
		}
		parent := code[:cut]
		kids[parent] = append(kids[parent], code)
	}
	if rootCode == "" {
		return nil, errors.New("parsing csv: no root row (code without dots)")
	}
	for parent, children := range kids {
		if _, ok := rows[parent]; !ok {
			return nil, fmt.Errorf("parsing csv: %q has no parent row %q", children[0], parent)
		}
	}

	var build func(code string) NodeDoc
	build = func(code string) NodeDoc {
		n := rows[code]
		for _, c := range kids[code] {
			n.Children = append(n.Children, build(c))
		}
		return n
	}
	return &Document{Version: CurrentVersion, Root: build(rootCode)}, nil
}

func parseCSVRow(rec []string, get func([]string, string) string) (NodeDoc, error) {
	n := NodeDoc{
		ID:          get(rec, "id"),
		Name:        get(rec, "name"),
		Start:       get(rec, "start"),
		End:         get(rec, "end"),
		Status:      get(rec, "status"),
		Responsible: get(rec, "responsible"),
		Description: get(rec, "description"),
	}
	var err error
	if n.Level, err = atoiOrZero(get(rec, "level")); err != nil {
		return n, fmt.Errorf("level: %w", err)
	}
	if v := get(rec, "cost"); v != "" {
		if n.Cost, err = strconv.ParseFloat(v, 64); err != nil {
			return n, fmt.Errorf("cost: invalid number %q", v)
		}
	}
	if n.DurationDays, err = optionalInt(get(rec, "duration_days")); err != nil {
		return n, fmt.Errorf("duration_days: %w", err)
	}
	if n.TRL, err = optionalInt(get(rec, "trl")); err != nil {
		return n, fmt.Errorf("trl: %w", err)
	}
	for _, dep := range strings.Split(get(rec, "dependencies"), ";") {
		if dep = strings.TrimSpace(dep); dep != "" {
			n.Dependencies = append(n.Dependencies, dep)
		}
	}
	return n, nil
}

func encodeCSV(w io.Writer, doc *Document) error {
	// Rows are keyed by position, so references to custom codes are
	// rewritten to the positional code.
	renamed := make(map[string]string)
	walkDocs(&doc.Root, func(n *NodeDoc, _ int, code string) {
		if n.Code != "" {
			renamed[n.Code] = code
		}
	})

	records := [][]string{csvColumns}
	walkDocs(&doc.Root, func(n *NodeDoc, depth int, code string) {
		level := n.Level
		if level == 0 {
			level = depth
		}
		deps := make([]string, len(n.Dependencies))
		for i, d := range n.Dependencies {
			if c, ok := renamed[d]; ok {
				d = c
			}
			deps[i] = d
		}
		records = append(records, []string{
			code,
			n.ID,
			n.Name,
			strconv.Itoa(level),
			strconv.FormatFloat(n.Cost, 'f', -1, 64),
			n.Start,
			n.End,
			formatOptionalInt(n.DurationDays),
			n.Status,
			n.Responsible,
			n.Description,
			strings.Join(deps, ";"),
			formatOptionalInt(n.TRL),
		})
	})
	cw := csv.NewWriter(w)
	return cw.WriteAll(records)
}

func checkCode(code string) error {
	if code == "" {
		return errors.New("code is required")
	}
	for _, seg := range strings.Split(code, ".") {
		if v, err := strconv.Atoi(seg); err != nil || v < 1 {
			return fmt.Errorf("invalid code %q (want dotted positive numbers like 1.2.3)", code)
		}
	}
	return nil
}

func isBlankRecord(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func atoiOrZero(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q", s)
	}
	return v, nil
}

func optionalInt(s string) (*int, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil, fmt.Errorf("invalid integer %q", s)
	}
	return &v, nil
}

func formatOptionalInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
