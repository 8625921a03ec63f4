package ai

// PresetCatalog returns the built-in catalog for a known provider.
func PresetCatalog(provider string) (map[string]ModelInfo, bool) {
	switch provider {
	case ProviderGemini, ProviderGoogle:
		return catalogOf(geminiModels...), true
	case ProviderOpenRouter:
		return catalogOf(openRouterModels...), true
	case ProviderOpenAI:
		return catalogOf(openRouterModels[1], openRouterModels[2]), true
	case ProviderAnthropic:
		return catalogOf(openRouterModels[3], openRouterModels[4]), true
	case ProviderMeta, ProviderLlama:
		return catalogOf(openRouterModels[6], openRouterModels[7]), true
	case ProviderOllama, ProviderLocal:
		return catalogOf(ollamaModels...), true
	}
	return nil, false
}

// RecommendModel returns a model name for a tier (cheap|balanced|high-context)
// and provider. An empty provider means gemini.
func RecommendModel(provider, tier string) (string, bool) {
	if provider == "" {
		provider = ProviderGemini
	}
	picks := map[string][3]string{
		ProviderGemini:     {"gemini-2.0-flash-lite", "gemini-2.0-flash", "gemini-1.5-pro"},
		ProviderGoogle:     {"gemini-2.0-flash-lite", "gemini-2.0-flash", "gemini-1.5-pro"},
		ProviderOpenRouter: {"deepseek/deepseek-r1:free", "openai/gpt-4o", "anthropic/claude-3.5-sonnet"},
		ProviderOpenAI:     {"openai/gpt-4o-mini", "openai/gpt-4o", "openai/gpt-4o"},
		ProviderAnthropic:  {"anthropic/claude-3-haiku", "anthropic/claude-3.5-sonnet", "anthropic/claude-3.5-sonnet"},
		ProviderMeta:       {"meta-llama/llama-3.1-8b-instruct", "meta-llama/llama-3.1-70b-instruct", "meta-llama/llama-3.1-70b-instruct"},
		ProviderLlama:      {"meta-llama/llama-3.1-8b-instruct", "meta-llama/llama-3.1-70b-instruct", "meta-llama/llama-3.1-70b-instruct"},
		ProviderOllama:     {"llama3.1:8b-instruct", "qwen2.5-coder:7b", "phi3:mini-128k-instruct"},
		ProviderLocal:      {"llama3.1:8b-instruct", "qwen2.5-coder:7b", "phi3:mini-128k-instruct"},
	}
	p, ok := picks[provider]
	if !ok {
		return "", false
	}
	switch tier {
	case "cheap":
		return p[0], true
	case "balanced":
		return p[1], true
	case "high-context":
		return p[2], true
	}
	return "", false
}
