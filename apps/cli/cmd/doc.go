// Package cmd implements the harness CLI commands using Cobra.
//
// Available commands:
//   - run: Execute the bundled UI and API suites
//   - list: Display the tests each suite would run
//   - validate: Resolve configuration without running anything
//   - init: Write a starter harness.yaml
//   - version: Show version information
//
// Configuration comes from harness.yaml, .env files, HARNESS_* variables
// and flags, in increasing order of precedence.
package cmd
