/*
Package promptloom is a prompt-chain execution engine for fanning sequences of
templated prompts across a team of agents.

It separates the chain definition (a prompt matrix plus agent roster) from the
execution state (cursor, context, responses) and from the agents themselves,
which live behind a small port. That separation keeps runs resumable: a chain
can snapshot after any step and be restored later, in another process, or
behind another transport.

# Concept

A matrix chain arranges prompts in a grid where each row belongs to one agent
and each column is a stage of the conversation. Execution walks the columns
left to right, resolving {placeholder} expressions in each prompt against a
shared context before dispatching it. Every response is written back into the
context under a stable key, so later prompts can reference earlier answers on
any row.

# Key Features

  - Deterministic ordering: steps derive from the matrix, with an optional
    per-column dependency resolver to reorder rows.
  - Soft template failure: unresolvable placeholders stay verbatim instead of
    aborting the run.
  - Durable sessions: snapshots persist through pluggable stores (in-memory,
    Redis) and survive process restarts.
  - Hexagonal layout: agents, stores, tracers and resolvers are ports; the
    engine never depends on a concrete backend.

# Usage

Initialize an Engine from a chain definition file and drive it by session ID:

	package main

	import (
		"context"
		"fmt"
		"log"

		"github.com/promptloom/promptloom"
	)

	func main() {
		eng, err := promptloom.New("./pipeline.yaml")
		if err != nil {
			log.Fatal(err)
		}

		ctx := context.Background()

		// Run the whole chain in one call...
		mc, err := eng.Run(ctx, "session-123")
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(mc.Context().Snapshot())

		// ...or step through it, persisting after every step.
		for {
			done, _, err := eng.Step(ctx, "session-456")
			if err != nil {
				log.Fatal(err)
			}
			if done {
				break
			}
		}
	}

For finer control, build chains directly with the chain package and wire your
own ports.Agent implementations.
*/
package promptloom
