// Package execution provides the unit-of-work execution framework shared by
// tasks and operations: the fixed lifecycle hook pipeline, the status state
// machine, and the right-biased result merge algebra used to fold partial
// hook outputs into a single accumulated Result.
//
// A Task is a single unit of work with identity, parameters, metadata, a
// Status, and an accumulated Result. An Operation is a Task that additionally
// owns an ordered list of child Tasks and executes them sequentially,
// skipping children that already completed successfully.
//
// Concrete tasks embed *Base and override the hooks they care about; the
// pipeline itself is driven by the package-level Execute, UncheckedExecute,
// Build, Launch, and LaunchNext functions, which dispatch dynamically through
// the Task and Operation interfaces.
package execution
