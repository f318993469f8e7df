// Package html reduces HTML mail bodies to plain text. Block elements
// become line breaks and blockquotes become "> " quoted lines so that
// reply splitting works the same as for text/plain parts.
package html
