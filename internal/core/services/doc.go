// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// Ingestion runs extract, chunk and index for one file at a time; chat
// resolves a session, retrieves context and generates an answer before
// anything is persisted.
package services
