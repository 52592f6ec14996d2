// Package exporter renders cached analysis results as downloadable files.
//
// Two formats are supported: a UTF-8 BOM prefixed CSV for spreadsheet
// imports, and a native Excel workbook with a metrics sheet plus the
// time series data.
package exporter
