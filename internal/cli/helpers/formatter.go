package helpers

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"strings"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"
)

// OutputFormat is a value of the --format flag.
type OutputFormat string

const (
	FormatTable OutputFormat = "table"
	FormatJSON  OutputFormat = "json"
	FormatCSV   OutputFormat = "csv"
	FormatYAML  OutputFormat = "yaml"
)

// Formatter renders command output.
type Formatter interface {
	Format(data interface{}, writer io.Writer) error
}

// NewFormatter returns the Formatter for format.
func NewFormatter(format OutputFormat) (Formatter, error) {
	switch format {
	case FormatTable:
		return tableFormatter{}, nil
	case FormatCSV:
		return csvFormatter{}, nil
	case FormatJSON:
		return jsonFormatter{}, nil
	case FormatYAML:
		return yamlFormatter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

type jsonFormatter struct{}

func (jsonFormatter) Format(data interface{}, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

type yamlFormatter struct{}

func (yamlFormatter) Format(data interface{}, w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(data); err != nil {
		return err
	}
	return enc.Close()
}

// tableFormatter aligns the `header`-tagged fields of a struct, or a slice
// of structs, in columns. Empty cells print as "-".
type tableFormatter struct{}

func (tableFormatter) Format(data interface{}, w io.Writer) error {
	header, rows, err := tabulate(data, "-")
	if err != nil || header == nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	for _, line := range append([][]string{header}, rows...) {
		if _, err := fmt.Fprintln(tw, strings.Join(line, "\t")); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// csvFormatter writes the same columns as tableFormatter as CSV records.
type csvFormatter struct{}

func (csvFormatter) Format(data interface{}, w io.Writer) error {
	header, rows, err := tabulate(data, "")
	if err != nil || header == nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}

// tabulate extracts the header and rows of data. An empty slice yields a
// nil header.
func tabulate(data interface{}, empty string) ([]string, [][]string, error) {
	v := reflect.Indirect(reflect.ValueOf(data))
	switch v.Kind() {
	case reflect.Struct:
		return columns(v.Type()), [][]string{cells(v, empty)}, nil
	case reflect.Slice, reflect.Array:
		if v.Len() == 0 {
			return nil, nil, nil
		}
		elemType := v.Type().Elem()
		if elemType.Kind() == reflect.Ptr {
			elemType = elemType.Elem()
		}
		if elemType.Kind() != reflect.Struct {
			return nil, nil, fmt.Errorf("cannot tabulate a slice of %s", elemType.Kind())
		}
		rows := make([][]string, v.Len())
		for i := range rows {
			rows[i] = cells(reflect.Indirect(v.Index(i)), empty)
		}
		return columns(elemType), rows, nil
	default:
		return nil, nil, fmt.Errorf("cannot tabulate %s, need a struct or a slice of structs", v.Kind())
	}
}

func columns(t reflect.Type) []string {
	var names []string
	for i := 0; i < t.NumField(); i++ {
		if name := t.Field(i).Tag.Get("header"); name != "" {
			names = append(names, name)
		}
	}
	return names
}

func cells(v reflect.Value, empty string) []string {
	var out []string
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		if t.Field(i).Tag.Get("header") == "" {
			continue
		}
		s := cell(v.Field(i))
		if s == "" {
			s = empty
		}
		out = append(out, s)
	}
	return out
}

func cell(v reflect.Value) string {
	if ts, ok := v.Interface().(time.Time); ok {
		if ts.IsZero() {
			return ""
		}
		return ts.Local().Format(time.DateTime)
	}
	return fmt.Sprint(v.Interface())
}
