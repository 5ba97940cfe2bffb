// Command devext supervises VS Code extension development host sessions.
//
// Usage:
//
//	devext serve [--host 127.0.0.1] [--port 8000]   HTTP tool dispatcher
//	devext run <workspaceDir> <prompt...>           one blocking session
//	devext prompt <workspaceDir> [prompt...]        write prompt files only
//	devext tools [--debug-tools]                    print the tool catalogue
//
// Configuration comes from the environment (PORT, HOST, LOG_LEVEL,
// DEVEXT_EDITOR_BIN, DEVEXT_GRACE_PERIOD, LLM_API_KEY, ...).
package main
