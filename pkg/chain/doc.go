/*
Package chain implements the prompt-chain execution engine.

Three chain flavors share the Step/Callable vocabulary:

  - SequentialChain: an ordered list of steps executed front to back,
    accumulating results into a shared template.Context.
  - CallableChain: a context-free pipe, each callable's return value feeding
    the next call as its first positional argument.
  - MatrixChain: the centerpiece. It consumes a prompt matrix (rows = agents,
    columns = sequence positions), synthesizes steps per column through a
    pluggable dependency resolver, executes them all at once or one at a time,
    and records results into a response matrix of identical shape.

MatrixChain execution is resumable: the cursor only advances past a step once
it succeeds, a failing step is retried by the next call (at-least-once
semantics), and Snapshot/Restore round-trip the cursor, context and response
matrix through a ports.StateStore.
*/
package chain
