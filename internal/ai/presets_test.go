package ai

import "testing"

func TestPresetCatalogGemini(t *testing.T) {
	m, ok := PresetCatalog("gemini")
	if !ok || len(m) == 0 {
		t.Fatalf("expected gemini preset to be available")
	}
	if _, exists := m[DefaultGeminiModel]; !exists {
		t.Fatalf("expected %s in gemini preset", DefaultGeminiModel)
	}
	if _, ok := PresetCatalog("nope"); ok {
		t.Fatalf("unknown provider should have no preset")
	}
}

func TestPresetCatalogOpenRouter(t *testing.T) {
	m, ok := PresetCatalog("openrouter")
	if !ok {
		t.Fatalf("expected openrouter preset")
	}
	if _, exists := m["openai/gpt-4o-mini"]; !exists {
		t.Fatalf("expected gpt-4o-mini in openrouter preset")
	}
	anth, _ := PresetCatalog("anthropic")
	if _, exists := anth["anthropic/claude-3-haiku"]; !exists {
		t.Fatalf("expected haiku in anthropic preset: %v", anth)
	}
}

func TestRecommendModel(t *testing.T) {
	cases := []struct{ provider, tier, want string }{
		{"", "balanced", "gemini-2.0-flash"},
		{"gemini", "cheap", "gemini-2.0-flash-lite"},
		{"openrouter", "cheap", "deepseek/deepseek-r1:free"},
		{"anthropic", "balanced", "anthropic/claude-3.5-sonnet"},
		{"ollama", "balanced", "qwen2.5-coder:7b"},
	}
	for _, c := range cases {
		if name, ok := RecommendModel(c.provider, c.tier); !ok || name != c.want {
			t.Fatalf("%s/%s: got %q want %q", c.provider, c.tier, name, c.want)
		}
	}
	if _, ok := RecommendModel("", "unknown"); ok {
		t.Fatalf("expected unknown tier to be false")
	}
	if _, ok := RecommendModel("nope", "cheap"); ok {
		t.Fatalf("expected unknown provider to be false")
	}
}

func TestCatalogHelpers(t *testing.T) {
	saved := Catalog()
	t.Cleanup(func() { OverrideCatalog(saved) })

	MergeCatalog(map[string]ModelInfo{"x/test": {Name: "x/test", ContextTokens: 10, InputPerK: 1, OutputPerK: 2}})
	cost, ok := EstimateCostUSD("x/test", 1000, 500)
	if !ok || cost != 2 {
		t.Fatalf("cost=%v ok=%v", cost, ok)
	}
	if _, ok := EstimateCostUSD("missing", 1, 1); ok {
		t.Fatalf("unknown model should not be priced")
	}
	sorted := SortedModels()
	for i := 1; i < len(sorted); i++ {
		if sorted[i-1].Name > sorted[i].Name {
			t.Fatalf("not sorted at %d", i)
		}
	}
}
