// Package services implements the driving port interfaces.
// The knowledge service contains the core ingestion and retrieval
// logic and orchestrates calls to driven ports (adapters).
//
// Mutating operations serialise on an in-process mutex plus a
// cross-process file lock; queries run lock-free against the vector
// index and document store.
package services
