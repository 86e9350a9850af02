// Package images downloads the chart images referenced by an upload result.
//
// The analysis server answers an upload with site-root paths of a histogram
// and a heatmap. Fetcher resolves both against the server URL, downloads
// them concurrently and stores them in a local directory under the base name
// of their path.
package images
