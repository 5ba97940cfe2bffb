// Package providers holds the tool providers exposed by the dispatcher and
// the result and parameter helpers they share.
//
// Available Providers:
//   - devext: launch, stop and inspect extension development host sessions
//   - i18n: locale enumeration and translation file editing
//   - llm: single-model queries and multi-model panel fan-out
//
// Provider Interface:
//   - Definition(): Returns service metadata and tool definitions
//   - Execute(): Executes a tool with parameters and context
package providers
