// Package domain contains the core data model of the prompt-chain engine:
// prompt and response matrices, typed step references, chain status and the
// durable execution snapshot. It has no dependencies on the runtime packages
// so adapters can share these types freely.
package domain
