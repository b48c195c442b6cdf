// Package xml models the parts of a WordprocessingML document this tool
// reads and rewrites: the body's paragraphs, runs, hyperlinks, and tables,
// the part relationships, and the package core properties.
//
// Parsing is order-preserving: elements the model does not understand are
// captured verbatim as RawXMLElement so a parse/serialize round trip never
// drops content. Marshaling emits w:-prefixed names directly; splicing the
// captured raw content back in is the caller's job (see the doclink
// package's document marshaler).
package xml
