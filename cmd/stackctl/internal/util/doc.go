/*
Package util provides shared helpers for the stackctl CLI.

It contains three small building blocks used across the bring-up
machinery:

  - EnvVar: a typed environment variable with key validation and
    sensitivity marking, so credentials never leak into logs.
  - CommandError: a rich error for external command failures carrying
    the command line, exit code, and trimmed stderr.
  - TimeoutConfig: validated timeout settings with enforced minimums,
    preventing accidental infinite hangs from zero-valued config.

# Thread Safety

All types in this package are immutable after creation and safe for
concurrent reads.
*/
package util
