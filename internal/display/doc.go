// Package display renders upload results.
//
// Sinks implement uploader.DisplaySink and write a model.Display to an
// io.Writer as plain text, JSON or Markdown. MultiSink fans a result out to
// several sinks, for example the terminal and a report file.
//
// WriterNotifier implements uploader.Notifier by printing alerts on their
// own line, typically to stderr.
package display
