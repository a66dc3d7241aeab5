package schema

import "github.com/vvka-141/koboload/pkg/koboload"

// PostgreSQL types used by the destination table.
const (
	TypeText        = "TEXT"
	TypeTimestampTZ = "TIMESTAMPTZ"
	TypeInt         = "INT"
)

// SurrogateKey is the auto-generated primary key column. It is not fed from
// the export.
const SurrogateKey = "id"

// columns is the fixed destination layout in insert order. Domain columns
// come from human-readable headers; platform columns share their header name.
var columns = []koboload.Column{
	{Name: "start", SourceHeader: "start", Type: TypeTimestampTZ},
	{Name: "end", SourceHeader: "end", Type: TypeTimestampTZ},
	{Name: "Date_of_reporting", SourceHeader: "Date of reporting", Type: TypeText},
	{Name: "Store_location", SourceHeader: "Store location", Type: TypeText},
	{Name: "Gender", SourceHeader: "Gender", Type: TypeText},
	{Name: "Age", SourceHeader: "Age", Type: TypeText},
	{Name: "How_satisfied_are_you_with_the_product_pricing", SourceHeader: "How satisfied are you with the product pricing", Type: TypeText},
	{Name: "How_satisfied_are_you_with_the_customer_services", SourceHeader: "How satisfied are you with the customer services", Type: TypeText},
	{Name: "What_is_your_overall_satisfaction", SourceHeader: "What is your overall satisfaction?", Type: TypeText},
	{Name: "what_is_your_recommendation", SourceHeader: "what is your recommendation", Type: TypeText},
	{Name: "_id", SourceHeader: "_id", Type: TypeInt},
	{Name: "_uuid", SourceHeader: "_uuid", Type: TypeText},
	{Name: "_submission_time", SourceHeader: "_submission_time", Type: TypeTimestampTZ},
	{Name: "_validation_status", SourceHeader: "_validation_status", Type: TypeText},
	{Name: "_notes", SourceHeader: "_notes", Type: TypeText},
	{Name: "_status", SourceHeader: "_status", Type: TypeText},
	{Name: "_submitted_by", SourceHeader: "_submitted_by", Type: TypeText},
	{Name: "__version__", SourceHeader: "__version__", Type: TypeText},
	{Name: "_tags", SourceHeader: "_tags", Type: TypeText},
	{Name: "_index", SourceHeader: "_index", Type: TypeInt},
}

// Columns returns the destination columns in insert order.
func Columns() []koboload.Column {
	out := make([]koboload.Column, len(columns))
	copy(out, columns)
	return out
}

// ColumnCount is the number of positional parameters in every insert.
func ColumnCount() int {
	return len(columns)
}

// MissingHeaders reports which mapped source headers do not appear in header.
// Those columns will be NULL for every row.
func MissingHeaders(header []string) []string {
	present := make(map[string]struct{}, len(header))
	for _, h := range header {
		present[h] = struct{}{}
	}
	var missing []string
	for _, c := range columns {
		if _, ok := present[c.SourceHeader]; !ok {
			missing = append(missing, c.SourceHeader)
		}
	}
	return missing
}
