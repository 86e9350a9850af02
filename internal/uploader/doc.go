// Package uploader posts a selected file to an analysis server and renders
// the returned summary and chart paths.
//
// The uploader does not look anything up globally. Its collaborators are
// passed in explicitly:
//   - FileSource supplies the selected file, if any
//   - DisplaySink receives the summary text and the two image paths
//   - Notifier shows short user-facing alerts
//   - an *slog.Logger receives the diagnostic detail of failures
//
// # Contract
//
// Each invocation sends at most one request:
//
//  1. No file selected: alert "Please upload a CSV file first." and stop.
//  2. Build a multipart body with the file under the field name "file".
//  3. POST it to {server}/upload.
//  4. Decode the JSON response.
//  5. Show the pretty-printed summary, "/"+histogram and "/"+heatmap.
//  6. Any failure in 2-5 alerts "Error occurred while uploading file." and
//     logs the cause. Network, status and decoding failures look the same
//     to the user.
//
// The Uploader holds no state between invocations. Invocations are not
// deduplicated or cancelled by each other; when two are in flight the one
// that resolves last determines what the sink shows.
package uploader
