package main

import (
	"os"

	"github.com/ChamsBouzaiene/otto/internal/config"
)

func applyConfigToEnv(cfg *config.Config) {
	if cfg.LLMProvider != "" {
		os.Setenv("LLM_PROVIDER", cfg.LLMProvider)
	}
	if cfg.APIKey != "" {
		switch cfg.LLMProvider {
		case "openai":
			os.Setenv("OPENAI_API_KEY", cfg.APIKey)
		case "anthropic":
			os.Setenv("ANTHROPIC_API_KEY", cfg.APIKey)
		case "deepseek":
			os.Setenv("DEEPSEEK_API_KEY", cfg.APIKey)
		case "groq":
			os.Setenv("GROQ_API_KEY", cfg.APIKey)
		}
	}
	if cfg.Model != "" {
		switch cfg.LLMProvider {
		case "openai":
			os.Setenv("OPENAI_MODEL", cfg.Model)
		case "anthropic":
			os.Setenv("ANTHROPIC_MODEL", cfg.Model)
		case "ollama":
			os.Setenv("OLLAMA_MODEL", cfg.Model)
		case "deepseek":
			os.Setenv("DEEPSEEK_MODEL", cfg.Model)
		case "groq":
			os.Setenv("GROQ_MODEL", cfg.Model)
		}
	}
	if cfg.BaseURL != "" {
		switch cfg.LLMProvider {
		case "openai":
			os.Setenv("OPENAI_BASE_URL", cfg.BaseURL)
		case "ollama":
			os.Setenv("OLLAMA_BASE_URL", cfg.BaseURL)
		}
	}
}
