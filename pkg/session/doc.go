/*
Package session implements session management and persistence orchestration
for chain executions.

It provides high-level abstractions for handling concurrent access to chain
snapshots across multiple replicas, integrating local memory locks with
distributed locking and long-term storage adapters.
*/
package session
