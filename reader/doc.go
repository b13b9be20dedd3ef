// Package reader decodes Apache Parquet files into in-memory tables.
//
// Files are read with github.com/parquet-go/parquet-go and materialized as
// arrow backed table.Table values. Parquet logical types are mapped to the
// closest arrow type (dates, timestamps, signed and unsigned integers);
// decimals of every physical type become their exact string form, and repeated or
// nested-list leaves hold the JSON text of their values.
//
// # Basic Usage
//
// Decoding an uploaded buffer:
//
//	t, err := reader.Load(body)
//	if errors.Is(err, reader.ErrDecode) {
//	    // not a parquet file
//	}
//
// Decoding a file on disk:
//
//	t, err := reader.LoadFile("data.parquet")
//	if errors.Is(err, reader.ErrNotFound) {
//	    // no such file
//	}
//
// # Multi-file Operations
//
// Reading multiple files using glob patterns:
//
//	t, err := reader.ReadMultipleFiles("data/*.parquet")
//
// Every row then carries a "_file" column with its source path. A plain
// path without wildcards is read unchanged.
//
// # Schema Introspection
//
//	infos, err := reader.ExtractSchemaInfo("data.parquet")
//	for _, info := range infos {
//	    fmt.Printf("%s: %s\n", info.Name, info.Type)
//	}
//
// Call Close on a Reader obtained from NewReader to release its file handle.
package reader
