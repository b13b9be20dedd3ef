// Package output writes tables in the formats offered by the command line.
//
// # Supported Formats
//
//   - json: a single JSON array of objects
//   - jsonl: one JSON object per line (suitable for streaming)
//   - csv: comma-separated values with a header row
//   - table: an aligned text table for terminals
//
// Object keys and CSV columns keep the column order of the table. NaN and
// infinite floats are written as null; timestamps as RFC 3339 strings.
//
// # Basic Usage
//
//	formatter, err := output.NewFormatter("csv", os.Stdout)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := formatter.Format(t); err != nil {
//	    log.Fatal(err)
//	}
//
// Write to a bytes buffer to get string output:
//
//	var buf bytes.Buffer
//	formatter := output.NewJSONLFormatter(&buf)
//	if err := formatter.Format(t); err != nil {
//	    log.Fatal(err)
//	}
package output
