package ai

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
)

// Model metadata and pricing used for warnings and the models command.
// Prices are illustrative.

type ModelInfo struct {
	Name          string
	ContextTokens int     // approximate context window
	InputPerK     float64 // USD per 1K input tokens
	OutputPerK    float64 // USD per 1K output tokens
}

func model(name string, ctx int, in, out float64) ModelInfo {
	return ModelInfo{Name: name, ContextTokens: ctx, InputPerK: in, OutputPerK: out}
}

func catalogOf(ms ...ModelInfo) map[string]ModelInfo {
	out := make(map[string]ModelInfo, len(ms))
	for _, m := range ms {
		out[m.Name] = m
	}
	return out
}

var (
	geminiModels = []ModelInfo{
		model("gemini-2.0-flash", 1048576, 0.0001, 0.0004),
		model("gemini-2.0-flash-lite", 1048576, 0.000075, 0.0003),
		model("gemini-1.5-flash", 1000000, 0.0002, 0.0008),
		model("gemini-1.5-pro", 2000000, 0.00125, 0.005),
	}
	openRouterModels = []ModelInfo{
		model("deepseek/deepseek-r1:free", 128000, 0, 0),
		model("openai/gpt-4o-mini", 128000, 0.0006, 0.0024),
		model("openai/gpt-4o", 128000, 0.005, 0.015),
		model("anthropic/claude-3.5-sonnet", 200000, 0.003, 0.015),
		model("anthropic/claude-3-haiku", 200000, 0.00025, 0.00125),
		model("google/gemini-2.0-flash-001", 1048576, 0.0001, 0.0004),
		model("meta-llama/llama-3.1-8b-instruct", 131072, 0, 0),
		model("meta-llama/llama-3.1-70b-instruct", 131072, 0, 0),
	}
	ollamaModels = []ModelInfo{
		model("llama3.1:8b-instruct", 8192, 0, 0),
		model("qwen2.5-coder:7b", 32768, 0, 0),
		model("mistral-nemo:latest", 8192, 0, 0),
		model("phi3:mini-128k-instruct", 128000, 0, 0),
	}
)

var (
	catalogMu sync.RWMutex
	models    = defaultCatalog()
)

func defaultCatalog() map[string]ModelInfo {
	all := append(append(append([]ModelInfo{}, geminiModels...), openRouterModels...), ollamaModels...)
	return catalogOf(all...)
}

// LookupModel returns ModelInfo and ok flag.
func LookupModel(name string) (ModelInfo, bool) {
	catalogMu.RLock()
	defer catalogMu.RUnlock()
	mi, ok := models[name]
	return mi, ok
}

// EstimateCostUSD estimates total cost for the given tokens. Unknown models
// return ok=false.
func EstimateCostUSD(model string, promptTokens, completionTokens int) (float64, bool) {
	mi, ok := LookupModel(model)
	if !ok {
		return 0, false
	}
	inCost := (float64(promptTokens) / 1000.0) * mi.InputPerK
	outCost := (float64(completionTokens) / 1000.0) * mi.OutputPerK
	return inCost + outCost, true
}

// LoadCatalogFromJSON loads a map[string]ModelInfo from a file:
// { "gemini-2.0-flash": {"Name":"gemini-2.0-flash","ContextTokens":1048576,"InputPerK":0.0001,"OutputPerK":0.0004} }
// Entries without a Name take their key.
func LoadCatalogFromJSON(path string) (map[string]ModelInfo, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m map[string]ModelInfo
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	for k, v := range m {
		if v.Name == "" {
			v.Name = k
			m[k] = v
		}
	}
	return m, nil
}

// OverrideCatalog replaces the in-memory catalog entirely.
func OverrideCatalog(m map[string]ModelInfo) {
	if m == nil {
		return
	}
	catalogMu.Lock()
	models = m
	catalogMu.Unlock()
}

// MergeCatalog merges/overrides entries in the in-memory catalog.
func MergeCatalog(m map[string]ModelInfo) {
	catalogMu.Lock()
	defer catalogMu.Unlock()
	for k, v := range m {
		models[k] = v
	}
}

// Catalog returns a copy of the current model catalog.
func Catalog() map[string]ModelInfo {
	catalogMu.RLock()
	defer catalogMu.RUnlock()
	out := make(map[string]ModelInfo, len(models))
	for k, v := range models {
		out[k] = v
	}
	return out
}

// SortedModels returns the catalog ordered by name.
func SortedModels() []ModelInfo {
	cat := Catalog()
	out := make([]ModelInfo, 0, len(cat))
	for _, v := range cat {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
