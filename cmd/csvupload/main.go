// Package main provides the entry point for the csvupload CLI.
//
// csvupload posts a CSV file to a data analysis server and shows the summary
// statistics and chart locations the server answers with.
//
// Usage:
//
//	csvupload upload data.csv
//	csvupload upload --server http://analysis.internal:5000 --json data.csv
//	csvupload history
//
// See --help for all available options.
package main

func main() {
	Execute()
}
