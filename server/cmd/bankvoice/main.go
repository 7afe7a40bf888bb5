package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"

	"github.com/joho/godotenv"

	"github.com/layyana-junaid/Voice-Assistance-Agent/server/internal/api"
	"github.com/layyana-junaid/Voice-Assistance-Agent/server/internal/coach"
	"github.com/layyana-junaid/Voice-Assistance-Agent/server/internal/config"
	"github.com/layyana-junaid/Voice-Assistance-Agent/server/internal/engine"
	"github.com/layyana-junaid/Voice-Assistance-Agent/server/internal/llm"
	"github.com/layyana-junaid/Voice-Assistance-Agent/server/internal/nlu"
	"github.com/layyana-junaid/Voice-Assistance-Agent/server/internal/session"
	"github.com/layyana-junaid/Voice-Assistance-Agent/server/internal/timeline"
)

func main() {
	// 敏感信息（GROQ_API_KEY）走 .env / 环境变量，不进配置文件。
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	configPath := flag.String("config", "server/configs/config.yaml", "config file path")
	addr := flag.String("addr", "", "http listen address (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	listenAddr := *addr
	if listenAddr == "" {
		listenAddr = fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	}

	// LLM 客户端是可选依赖：创建失败只意味着台词/抽取退化到确定性路径。
	var client llm.Client
	if c, err := llm.NewClient(cfg); err != nil {
		log.Printf("llm client unavailable, running on templates: %v", err)
	} else {
		client = c
	}

	store := session.NewInMemoryStore()
	tl := timeline.NewInMemoryStore()
	extractor := nlu.NewLLMExtractor(client, nil)
	generator := coach.NewLLMGenerator(client, nil)
	eng := engine.New(store, tl, extractor, generator, cfg.Engine.UserName, nil)
	server := api.NewServer(cfg, store, tl, eng, nil)

	log.Printf("bankvoice server listening on %s", listenAddr)
	if err := http.ListenAndServe(listenAddr, server.Routes()); err != nil {
		log.Fatalf("serve: %v", err)
	}
}
