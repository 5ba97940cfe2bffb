// Package service provides the tool registry and dispatcher.
//
// Providers declare a service with its tools; the registry indexes every
// tool ID so that a call such as "launch_dev_extension" or "i18n.get" is
// routed to the provider that declared it. Tool IDs are unique across
// providers.
//
// Example Usage:
//
//	registry := service.NewRegistry()
//	registry.Register(devextProvider)
//	result, err := registry.Execute(ctx, "stop_dev_extension", params, appCtx)
package service
