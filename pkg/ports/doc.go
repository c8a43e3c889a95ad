// Package ports defines the capability surfaces the chain engine consumes
// (agents, dependency resolvers, tracers) and the surfaces adapters implement
// on its behalf (state stores, distributed lockers). Keeping these interfaces
// in one place decouples the core from every concrete collaborator.
package ports
