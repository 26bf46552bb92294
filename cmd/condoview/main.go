package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jessevdk/go-flags"
	"gopkg.in/yaml.v3"

	"github.com/mohammed-shakir/bkk-condo-map/internal/dataset"
	"github.com/mohammed-shakir/bkk-condo-map/internal/density"
	"github.com/mohammed-shakir/bkk-condo-map/internal/table"
	"github.com/mohammed-shakir/bkk-condo-map/internal/view"
)

type Options struct {
	Input   string   `short:"i" long:"in" description:"Condo GeoJSON file. Reads from stdin if empty" env:"CONDOS_SRC"`
	Output  string   `short:"o" long:"out" description:"Output file path. Writes to stdout if empty"`
	Format  string   `short:"f" long:"format" description:"Output format" choice:"json" choice:"yaml" default:"json"`
	Region  string   `short:"r" long:"region" description:"Exact region name (AMP_NAME_T)"`
	Sort    string   `short:"s" long:"sort" description:"Sort field or column label"`
	Dir     string   `short:"d" long:"dir" description:"Sort direction" choice:"asc" choice:"desc" default:"asc"`
	Filter  []string `short:"F" long:"filter" description:"Column filter field=value, repeatable"`
	Page    int      `short:"p" long:"page" description:"Page index, starting at 0" default:"0"`
	Size    int      `short:"n" long:"size" description:"Rows per page" default:"5" env:"PAGE_SIZE"`
	Values  string   `long:"values" description:"Print the unique values of this field instead of a page"`
	Density int      `long:"density" description:"Print an H3 hexbin of the view at this resolution (-1 disables)" default:"-1"`
}

type pageOutput struct {
	Query view.Query  `json:"query"`
	Page  view.Page   `json:"page"`
	Rows  []table.Row `json:"rows"`
}

func main() {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}
	if err := run(opts, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(opts Options, stdin io.Reader, stdout io.Writer) error {
	var (
		raw []byte
		err error
	)
	if opts.Input != "" {
		raw, err = os.ReadFile(opts.Input)
	} else {
		raw, err = io.ReadAll(stdin)
	}
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	fc, err := dataset.Decode(raw)
	if err != nil {
		return fmt.Errorf("decode condos: %w", err)
	}

	q, err := buildQuery(opts)
	if err != nil {
		return err
	}

	var result any
	switch {
	case opts.Values != "":
		field := opts.Values
		if f, ok := table.FieldForLabel(field); ok {
			field = f
		}
		result = map[string]any{"field": field, "values": view.UniqueValues(fc, field, opts.Region)}
	case opts.Density >= 0:
		result, err = density.Hexbin(view.Features(fc, view.ComputeView(fc, q)), opts.Density, nil)
		if err != nil {
			return err
		}
	default:
		idx := view.ComputeView(fc, q)
		page := view.Paginate(len(idx), view.PageSpec{Index: opts.Page, Size: opts.Size})
		rows := make([]table.Row, 0, page.End-page.Start)
		for _, i := range page.Slice(idx) {
			rows = append(rows, table.RenderRow(fc.Features[i], i, false))
		}
		result = pageOutput{Query: q, Page: page, Rows: rows}
	}

	out, err := encode(result, opts.Format)
	if err != nil {
		return err
	}
	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, out, 0o644); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		return nil
	}
	_, err = stdout.Write(out)
	return err
}

func buildQuery(opts Options) (view.Query, error) {
	q := view.Query{Region: strings.TrimSpace(opts.Region), Filters: view.ColumnFilter{}}
	if opts.Sort != "" {
		field := opts.Sort
		if f, ok := table.FieldForLabel(field); ok {
			field = f
		}
		dir, err := view.ParseDirection(opts.Dir)
		if err != nil {
			return view.Query{}, err
		}
		q.Sort = view.SortSpec{Field: field, Direction: dir}
	}
	for _, f := range opts.Filter {
		field, value, ok := strings.Cut(f, "=")
		if !ok || field == "" {
			return view.Query{}, fmt.Errorf("filter %q must be field=value", f)
		}
		q.Filters[field] = append(q.Filters[field], value)
	}
	return q, nil
}

// encode writes v as indented JSON, or as YAML with the JSON field names and order.
func encode(v any, format string) ([]byte, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}
	if format != "yaml" {
		return append(b, '\n'), nil
	}
	var node yaml.Node
	if err := yaml.Unmarshal(b, &node); err != nil {
		return nil, fmt.Errorf("yaml: %w", err)
	}
	blockStyle(&node)
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return nil, fmt.Errorf("yaml: %w", err)
	}
	_ = enc.Close()
	return buf.Bytes(), nil
}

func blockStyle(n *yaml.Node) {
	n.Style &^= yaml.FlowStyle | yaml.DoubleQuotedStyle
	for _, c := range n.Content {
		blockStyle(c)
	}
}
