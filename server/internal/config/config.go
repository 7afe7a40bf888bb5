package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config 全局配置
type Config struct {
	Server Server    `yaml:"server"`
	LLM    LLMConfig `yaml:"llm"`
	Engine Engine    `yaml:"engine"`
	CORS   CORS      `yaml:"cors"`
}

type Server struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// LLMConfig LLM 协作方配置（填槽抽取与台词生成共用一个客户端）
type LLMConfig struct {
	Provider  string            `yaml:"provider"` // "groq", "openai" or "anthropic"
	Groq      LLMProviderConfig `yaml:"groq"`
	OpenAI    LLMProviderConfig `yaml:"openai"`
	Anthropic LLMProviderConfig `yaml:"anthropic"`
}

// LLMProviderConfig LLM 提供商配置
type LLMProviderConfig struct {
	APIKey      string  `yaml:"api_key"`
	APIURL      string  `yaml:"api_url"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	// TimeoutSec 限制单次协作方调用的时长；0 表示用内置默认值。
	TimeoutSec int `yaml:"timeout_sec"`
}

// Engine 对话引擎配置
type Engine struct {
	// UserName 出现在 reset 后的问候语里。
	UserName string `yaml:"user_name"`
}

// CORS 跨域白名单（开发期前端直连用）
type CORS struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Load 从文件加载配置
func Load(path string) (*Config, error) {
	fmt.Printf("📋 Loading config from: %s\n", path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	fmt.Printf("✅ Config parsed successfully\n")

	// 从环境变量覆盖敏感信息
	if groqKey := os.Getenv("GROQ_API_KEY"); groqKey != "" {
		fmt.Printf("🔑 Using GROQ_API_KEY from environment variable\n")
		cfg.LLM.Groq.APIKey = groqKey
	}
	if llmKey := os.Getenv("LLM_API_KEY"); llmKey != "" {
		fmt.Printf("🔑 Using LLM_API_KEY from environment variable\n")
		switch cfg.LLM.Provider {
		case "groq":
			cfg.LLM.Groq.APIKey = llmKey
		case "openai":
			cfg.LLM.OpenAI.APIKey = llmKey
		case "anthropic":
			cfg.LLM.Anthropic.APIKey = llmKey
		}
	}
	if anthropicKey := os.Getenv("ANTHROPIC_API_KEY"); anthropicKey != "" {
		cfg.LLM.Anthropic.APIKey = anthropicKey
	}
	if model := os.Getenv("GROQ_MODEL"); model != "" {
		fmt.Printf("🤖 Using GROQ_MODEL from environment: %s\n", model)
		cfg.LLM.Groq.Model = model
	}

	cfg.applyDefaults()

	// 打印关键配置
	fmt.Printf("\n📊 Configuration Summary:\n")
	fmt.Printf("   Server: %s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("   LLM Provider: %s\n", cfg.LLM.Provider)
	fmt.Printf("   LLM Model: %s\n", cfg.activeProvider().Model)
	fmt.Printf("   User Name: %s\n", cfg.Engine.UserName)
	fmt.Printf("\n")

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	fmt.Printf("✅ Config validation passed\n\n")

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = "groq"
	}
	if c.LLM.Groq.APIURL == "" {
		c.LLM.Groq.APIURL = "https://api.groq.com/openai/v1"
	}
	if c.LLM.Groq.Model == "" {
		c.LLM.Groq.Model = "llama-3.1-70b-versatile"
	}
	if c.Engine.UserName == "" {
		c.Engine.UserName = "Layyana"
	}
	if len(c.CORS.AllowedOrigins) == 0 {
		// 开发期默认允许本地前端，生产环境应显式配置白名单。
		c.CORS.AllowedOrigins = []string{
			"http://localhost:5500",
			"http://127.0.0.1:5500",
			"http://localhost:5173",
			"http://127.0.0.1:5173",
		}
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "groq", "openai", "anthropic":
	default:
		return fmt.Errorf("unsupported LLM provider: %s", c.LLM.Provider)
	}
	// API key 缺失不是致命错误：引擎会退化到确定性模板台词。
	if c.activeProvider().APIKey == "" {
		fmt.Printf("⚠️  No API key for provider %s, falling back to templated replies\n", c.LLM.Provider)
	}
	return nil
}

func (c *Config) activeProvider() LLMProviderConfig {
	switch c.LLM.Provider {
	case "openai":
		return c.LLM.OpenAI
	case "anthropic":
		return c.LLM.Anthropic
	default:
		return c.LLM.Groq
	}
}

// ActiveProvider 返回当前选中的提供商配置。
func (c *Config) ActiveProvider() LLMProviderConfig {
	return c.activeProvider()
}
