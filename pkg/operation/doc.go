/*
Package operation runs one bundling job from a validated config to a written bundle.

	+-----------+    +--------+    +----------+    +-------------+
	|  pattern  | -> |  walk  | -> | selector | -> |   bundle    |
	| (compile) |    | (lazy) |    |  (sort)  |    | (read+write)|
	+-----------+    +--------+    +----------+    +-------------+

🎯 Purpose:
- Wires the pipeline stages together
- Tags fatal errors with the phase they came from
- Aggregates walk warnings into the run result

🔄 Flow:
1. Validate a copy of the config
2. Compile patterns, before any traversal
3. Walk the source tree, pruning directories the patterns rule out
4. Select matches and order them by relative path
5. Read in parallel, write once, rename into place

⚡ Errors:
Every fatal error is a *PhaseError whose message is "<phase>: <cause>".
The cause keeps its type, so errors.As still finds *pattern.PatternError,
*bundle.ReadError and *bundle.WriteError.

🔍 Example:

	runner := operation.NewRunner(zerolog.Ctx(ctx))
	res, err := runner.Run(ctx, cfg)
	if err != nil {
		return err
	}
	fmt.Printf("Bundle created at: %s\n", res.OutputPath)
*/
package operation
