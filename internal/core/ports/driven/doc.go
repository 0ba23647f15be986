// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - Normaliser: Extracts normalised text from one source format
//   - Chunker: Splits normalised content into retrievable chunks
//   - DocumentStore: Document, chunk, and store-meta persistence
//   - VectorIndex: Persistent vector similarity search
//   - EmbeddingService: Generates vector embeddings
//   - ConfigStore: Application configuration
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or normaliser package
package driven
