package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/openfroyo/typescope/pkg/introspect"
	"github.com/openfroyo/typescope/pkg/scanner"
)

var (
	nameColor    = color.New(color.Bold)
	loadedColor  = color.New(color.FgGreen)
	failedColor  = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed, color.Bold)
	detailColor  = color.New(color.FgCyan)
	versionColor = color.New(color.FgBlue, color.Bold)
)

// binaryReport is the outcome of scanning one binary.
type binaryReport struct {
	Binary   string       `json:"binary"`
	Location string       `json:"location,omitempty"`
	CodeBase string       `json:"code_base,omitempty"`
	ScanID   string       `json:"scan_id,omitempty"`
	Types    []typeReport `json:"types"`
	Failed   int          `json:"failed"`
	Error    string       `json:"error,omitempty"`
}

// typeReport describes one loaded type.
type typeReport struct {
	Name       string         `json:"name"`
	Flags      []string       `json:"flags"`
	Base       string         `json:"base,omitempty"`
	Attributes []string       `json:"attributes,omitempty"`
	Members    []memberReport `json:"members,omitempty"`
	Methods    []methodReport `json:"methods,omitempty"`
}

type memberReport struct {
	Name       string   `json:"name"`
	Attributes []string `json:"attributes,omitempty"`
}

type methodReport struct {
	Name      string   `json:"name"`
	Signature string   `json:"signature"`
	Params    []string `json:"params"`
}

func newBinaryReport(name string, m introspect.Module, result *scanner.ScanResult) binaryReport {
	asm := introspect.ModuleAssembly(m)
	r := binaryReport{
		Binary:   name,
		Location: asm.Location,
		CodeBase: asm.CodeBase(),
		ScanID:   result.ID,
		Types:    make([]typeReport, 0, len(result.Types)),
		Failed:   result.Failed,
	}
	for _, t := range result.Types {
		r.Types = append(r.Types, newTypeReport(t, false))
	}
	return r
}

func newTypeReport(t introspect.Type, detailed bool) typeReport {
	r := typeReport{
		Name:  t.Name(),
		Flags: t.Flags().Names(),
	}
	if base, ok := introspect.BaseType(t); ok {
		r.Base = base.Name()
	}
	if !detailed {
		return r
	}

	r.Attributes = describeAttributes(introspect.GetCustomAttributes[any](t, true))
	for _, m := range t.Members() {
		r.Members = append(r.Members, memberReport{Name: m.Name(), Attributes: describeAttributes(m.Attributes())})
	}
	for _, m := range t.StaticMethods() {
		r.Methods = append(r.Methods, newMethodReport(m))
	}
	return r
}

func newMethodReport(m introspect.Method) methodReport {
	r := methodReport{Name: m.Name()}
	for i, p := range m.Params() {
		s := p.Name
		if p.Type != "" {
			s += " " + p.Type
		}
		if m.Variadic() && i == len(m.Params())-1 {
			s = "..." + s
		}
		if p.Optional {
			s += fmt.Sprintf(" = %v", p.Default)
		}
		r.Params = append(r.Params, s)
	}
	r.Signature = fmt.Sprintf("%s(%s)", m.Name(), strings.Join(r.Params, ", "))
	return r
}

func describeAttributes(attrs []any) []string {
	out := make([]string, 0, len(attrs))
	for _, a := range attrs {
		out = append(out, fmt.Sprintf("%T%+v", a, a))
	}
	return out
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printBinaryReport(w io.Writer, r binaryReport) {
	if r.Error != "" {
		fmt.Fprintf(w, "%s %s\n", nameColor.Sprint(r.Binary), errorColor.Sprint(r.Error))
		return
	}

	status := failedColor.Sprintf("%d failed", r.Failed)
	if r.Failed == 0 {
		status = loadedColor.Sprint("0 failed")
	}
	fmt.Fprintf(w, "%s %s (%s, %s)\n",
		nameColor.Sprint(r.Binary),
		detailColor.Sprint(r.Location),
		loadedColor.Sprintf("%d types loaded", len(r.Types)),
		status,
	)
	for _, t := range r.Types {
		line := "  " + t.Name
		if t.Base != "" {
			line += " : " + t.Base
		}
		if len(t.Flags) > 0 {
			line += " " + detailColor.Sprintf("[%s]", strings.Join(t.Flags, ", "))
		}
		fmt.Fprintln(w, line)
	}
}

func printTypeReport(w io.Writer, binary string, t typeReport) {
	fmt.Fprintf(w, "%s %s\n", nameColor.Sprint(t.Name), detailColor.Sprintf("(%s)", binary))
	if t.Base != "" {
		fmt.Fprintf(w, "  base: %s\n", t.Base)
	}
	fmt.Fprintf(w, "  flags: %s\n", strings.Join(t.Flags, ", "))

	if len(t.Attributes) > 0 {
		fmt.Fprintln(w, "  attributes:")
		for _, a := range t.Attributes {
			fmt.Fprintf(w, "    %s\n", a)
		}
	}
	if len(t.Members) > 0 {
		fmt.Fprintln(w, "  members:")
		for _, m := range t.Members {
			fmt.Fprintf(w, "    %s", m.Name)
			if len(m.Attributes) > 0 {
				fmt.Fprintf(w, " %s", detailColor.Sprint(strings.Join(m.Attributes, " ")))
			}
			fmt.Fprintln(w)
		}
	}
	if len(t.Methods) > 0 {
		fmt.Fprintln(w, "  static methods:")
		for _, m := range t.Methods {
			fmt.Fprintf(w, "    %s\n", m.Signature)
		}
	}
}
