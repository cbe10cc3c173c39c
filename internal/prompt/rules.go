package prompt

// DefaultRules is the built-in rule set used when the project's rules
// document cannot be fetched. Prompts built with it are flagged so the
// final report can note degraded-rules mode.
const DefaultRules = `Review the changes for:
- Correctness: logic errors, off-by-one mistakes, broken error handling, race conditions.
- Security: injection, unsafe deserialization, secrets in code, missing authorization checks.
- Maintainability: unclear naming, dead code, missing tests for new behavior.
- Performance: accidental quadratic work, unbounded allocations, blocking calls on hot paths.

Only raise issues visible in the changed lines. Do not restate the diff.`
