// Package validate checks generated dashboards and rules: every PromQL
// expression must parse and reference only known metrics.
package validate

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/prometheus/prometheus/promql/parser"

	"github.com/donaldgifford/mailin-buyback/tools/dashgen/rules"
)

// Result collects validation findings. Errors fail generation; warnings
// flag panels that are likely mistakes but still render.
type Result struct {
	Errors   []string
	Warnings []string
}

// Ok reports whether no errors were found.
func (r *Result) Ok() bool { return len(r.Errors) == 0 }

func (r *Result) errorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *Result) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// jsonPanel is the subset of the Grafana panel model the checks need.
type jsonPanel struct {
	Title   string      `json:"title"`
	Type    string      `json:"type"`
	Targets []jsonQuery `json:"targets"`
	Panels  []jsonPanel `json:"panels"`
}

type jsonQuery struct {
	Expr  string `json:"expr"`
	RefID string `json:"refId"`
}

// Dashboard validates every query of a built dashboard. The dashboard is
// inspected through its JSON form so any SDK model type is accepted.
func Dashboard(dash any, known map[string]bool) Result {
	var res Result

	data, err := json.Marshal(dash)
	if err != nil {
		res.errorf("marshaling dashboard: %v", err)
		return res
	}
	var doc struct {
		Panels []jsonPanel `json:"panels"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		res.errorf("decoding dashboard: %v", err)
		return res
	}

	var walk func(panels []jsonPanel)
	walk = func(panels []jsonPanel) {
		for _, p := range panels {
			if p.Type == "row" {
				walk(p.Panels)
				continue
			}
			if len(p.Targets) == 0 {
				res.warnf("panel %q has no queries", p.Title)
			}
			for _, q := range p.Targets {
				checkExpr(&res, fmt.Sprintf("panel %q query %s", p.Title, q.RefID), q.Expr, known)
			}
		}
	}
	walk(doc.Panels)

	return res
}

// Rules validates the expressions of a rule CR. Recording rule names are
// added to known for the rules that follow.
func Rules(cr rules.PrometheusRule, known map[string]bool) Result {
	var res Result
	for _, g := range cr.Spec.Groups {
		for _, r := range g.Rules {
			name := r.Record
			if name == "" {
				name = r.Alert
			}
			checkExpr(&res, fmt.Sprintf("rule %s/%s", g.Name, name), r.Expr, known)
			if r.Record != "" && !known[r.Record] {
				res.warnf("recording rule %s is not in the known metric list", r.Record)
			}
		}
	}
	return res
}

func checkExpr(res *Result, where, expr string, known map[string]bool) {
	if strings.TrimSpace(expr) == "" {
		res.errorf("%s: empty expression", where)
		return
	}
	parsed, err := parser.ParseExpr(expr)
	if err != nil {
		res.errorf("%s: %v", where, err)
		return
	}
	for _, name := range MetricNames(parsed) {
		if !isKnown(name, known) {
			res.errorf("%s: unknown metric %q", where, name)
		}
	}
}

// MetricNames returns the sorted metric names selected by an expression.
func MetricNames(expr parser.Expr) []string {
	seen := map[string]bool{}
	parser.Inspect(expr, func(node parser.Node, _ []parser.Node) error {
		if vs, ok := node.(*parser.VectorSelector); ok && vs.Name != "" {
			seen[vs.Name] = true
		}
		return nil
	})

	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func isKnown(name string, known map[string]bool) bool {
	if known[name] {
		return true
	}
	for _, suffix := range []string{"_bucket", "_sum", "_count"} {
		if base, ok := strings.CutSuffix(name, suffix); ok && known[base] {
			return true
		}
	}
	return false
}
