// Package llm provides LLM query tools over an OpenAI-compatible
// chat-completions endpoint.
//
// The client layers a token-bucket limiter, resty retries on 429/5xx and a
// circuit breaker. A missing API key does not prevent startup; calls fail
// with ErrMissingAPIKey instead.
//
// llm.panel fans one prompt out to several models. The model list comes
// from the call, else the panel file (YAML or TOML, "models" and optional
// "system"), else the default model.
package llm
