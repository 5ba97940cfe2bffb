// Package devext exposes the extension development host tools:
// launch_dev_extension blocks until its session ends, stop_dev_extension ends
// a session from an unrelated call, list_dev_sessions reports live sessions
// and write_prompt_file (debug only) writes the prompt artifacts alone.
//
// A workspace is laid out as <workspaceDir>/src (the extension) and
// <workspaceDir>/examples (the folder the editor opens, where .PROMPT and
// PROMPT.txt are written).
package devext
