// Package normalisers provides implementations of the Normaliser interface
// for the supported document formats. Each normaliser knows how to extract
// text content from exactly one format.
//
// The registry maps each domain.Format to its normaliser; dispatch happens
// once, on the format resolved at ingestion entry.
package normalisers
