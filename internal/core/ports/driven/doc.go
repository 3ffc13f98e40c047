// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - TextExtractor / ExtractorRegistry: Turn uploaded bytes into pages
//   - EmbeddingService: Generates vector embeddings
//   - VectorBackend: Stores and searches vector collections
//   - LLMService: Generates answers and session titles
//   - DocumentStore: Document record persistence
//   - SessionStore: Conversation persistence
//   - FileStore: Uploaded file bytes
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
//   - PromptStore: Customised prompt templates. Built-in defaults apply when nil.
//   - AIConfigValidator: Checks provider settings before they are saved.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
